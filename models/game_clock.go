// models/game_clock.go
package models

// GameClock is the singleton (ID=1) global season clock. It is mutated only by
// operator actions and consulted by the accrual engine to gate yield and to
// skip paused windows.
//
// Lifecycle: NotStarted → Active → Paused ⇄ Active → Ended (terminal).
type GameClock struct {
	ID             uint  `gorm:"primaryKey" json:"id"`
	Started        bool  `gorm:"not null;default:false" json:"started"`
	Active         bool  `gorm:"not null;default:false" json:"active"`
	Ended          bool  `gorm:"not null;default:false" json:"ended"`
	StartTime      int64 `gorm:"not null;default:0" json:"start_time"`       // may be in the future
	LastResumeTime int64 `gorm:"not null;default:0" json:"last_resume_time"` // accrual skips time before this

	Timestamps
}
