// internal/models/models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
)

const (
	AnalysisHeartHealth    = "heart_health"
	AnalysisRiskAssessment = "risk_assessment"
	AnalysisComprehensive  = "comprehensive"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

const (
	MessageText          = "text"
	MessageQuickResponse = "quick_response"
	MessageSystem        = "system"
)

// ValidRiskLevel reports whether level is one of Low, Moderate or High.
func ValidRiskLevel(level string) bool {
	switch level {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	}
	return false
}

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type PatientInfo struct {
	Name                   string `gorm:"not null" json:"name" binding:"required"`
	Age                    int    `json:"age" binding:"required,min=1,max=120"`
	Gender                 string `json:"gender" binding:"required,oneof=male female other"`
	BloodPressureSystolic  int    `json:"bloodPressureSystolic" binding:"required,min=70,max=250"`
	BloodPressureDiastolic int    `json:"bloodPressureDiastolic" binding:"required,min=40,max=150"`
	BloodSugar             int    `json:"bloodSugar" binding:"required,min=50,max=600"`
	ChestPain              string `json:"chestPain" binding:"required,oneof=typical atypical non-anginal asymptomatic"`
	HeartRate              *int   `json:"heartRate,omitempty" binding:"omitempty,min=40,max=200"`
	Cholesterol            *int   `json:"cholesterol,omitempty" binding:"omitempty,min=100,max=500"`
	ExerciseInducedAngina  string `json:"exerciseInducedAngina,omitempty" binding:"omitempty,oneof=yes no"`
	SmokingHistory         string `json:"smokingHistory,omitempty" binding:"omitempty,oneof=never former current"`
	FamilyHistory          string `json:"familyHistory,omitempty" binding:"omitempty,oneof=yes no unknown"`
}

type UploadedFile struct {
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	FileType   string    `json:"fileType"`
	UploadDate time.Time `json:"uploadDate"`
}

// PatientAnalysis is the summary of the latest analysis run for an intake
// record. All fields stay empty until the first one completes.
type PatientAnalysis struct {
	RiskScore       *int       `json:"riskScore,omitempty"`
	RiskLevel       string     `json:"riskLevel,omitempty"`
	Confidence      *float64   `json:"confidence,omitempty"`
	Recommendations []string   `gorm:"type:text;serializer:json" json:"recommendations,omitempty"`
	AnalysisDate    *time.Time `json:"analysisDate,omitempty"`
}

// PatientData is the intake questionnaire a user fills in before an analysis.
type PatientData struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"userId"`
	PatientInfo     PatientInfo     `gorm:"embedded;embeddedPrefix:patient_" json:"patientInfo"`
	UploadedFiles   []UploadedFile  `gorm:"type:text;serializer:json" json:"uploadedFiles"`
	AnalysisResults PatientAnalysis `gorm:"embedded;embeddedPrefix:analysis_" json:"analysisResults"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// AnalysisRecord is the persisted outcome of one successful classification.
// Only the Feedback fields change after creation.
type AnalysisRecord struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	UserID        uint   `gorm:"not null;index:idx_analysis_user_created,priority:1" json:"userId"`
	PatientDataID *uint  `json:"patientDataId,omitempty"`
	AnalysisType  string `gorm:"not null;default:'heart_health'" json:"analysisType"`

	FileName         string `json:"fileName"`
	FileSize         int64  `json:"fileSize"`
	FileCount        int    `json:"fileCount"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	ImageObject      string `json:"-"`

	RiskScore       int                `gorm:"not null" json:"riskScore"`
	RiskLevel       string             `gorm:"not null;index" json:"riskLevel"`
	Confidence      float64            `gorm:"not null" json:"confidence"`
	PredictedClass  string             `json:"predictedClass"`
	Probabilities   map[string]float64 `gorm:"type:text;serializer:json" json:"probabilities"`
	Recommendations []string           `gorm:"type:text;serializer:json" json:"recommendations"`
	Alerts          []string           `gorm:"type:text;serializer:json" json:"alerts"`

	ModelVersion string    `json:"modelVersion"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	DurationMs   int64     `json:"durationMs"`

	Feedback Feedback `gorm:"embedded;embeddedPrefix:feedback_" json:"userFeedback"`

	CreatedAt time.Time `gorm:"index:idx_analysis_user_created,priority:2" json:"createdAt"`
}

type Feedback struct {
	Rating    *int   `json:"rating,omitempty"`
	Comments  string `json:"comments,omitempty"`
	IsHelpful *bool  `json:"isHelpful,omitempty"`
}

type ChatSession struct {
	ID        uint          `gorm:"primarykey" json:"-"`
	SessionID string        `gorm:"uniqueIndex;not null" json:"sessionId"`
	UserID    uint          `gorm:"not null;index" json:"-"`
	StartedAt time.Time     `json:"sessionStarted"`
	EndedAt   *time.Time    `json:"sessionEnded,omitempty"`
	IsActive  bool          `gorm:"not null" json:"isActive"`
	Messages  []ChatMessage `gorm:"foreignKey:ChatSessionID;constraint:OnDelete:CASCADE" json:"messages"`
	CreatedAt time.Time     `json:"-"`
	UpdatedAt time.Time     `json:"-"`
}

// ChatMessage rows are append-only; Seq is contiguous within a session.
type ChatMessage struct {
	ID            uint      `gorm:"primarykey" json:"-"`
	ChatSessionID uint      `gorm:"not null;uniqueIndex:idx_chat_session_seq,priority:1" json:"-"`
	Seq           int       `gorm:"not null;uniqueIndex:idx_chat_session_seq,priority:2" json:"seq"`
	Sender        string    `gorm:"not null" json:"sender"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	MessageType   string    `gorm:"not null;default:'text'" json:"messageType"`
	Intent        string    `json:"intent,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
}

// All lists every model managed by AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&PatientData{},
		&AnalysisRecord{},
		&ChatSession{},
		&ChatMessage{},
	}
}
