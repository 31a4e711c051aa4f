// services/clock_service.go
package services

import (
	"errors"

	"game-economy-system/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

var (
	ErrClockAlreadyStarted = errors.New("game clock: already started")
	ErrClockNotStarted     = errors.New("game clock: not started")
	ErrClockNotPaused      = errors.New("game clock: not paused")
	ErrClockNotActive      = errors.New("game clock: not active")
	ErrClockEnded          = errors.New("game clock: season has ended")
	ErrStartTimeInPast     = errors.New("game clock: start time in the past")
)

// ClockService owns the singleton season clock. Operators drive the
// transitions; the accrual engine only reads the resulting flags and
// timestamps. "Waiting" is never a blocking wait anywhere in this system —
// it is always a comparison against these stored times.
type ClockService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewClockService(db *gorm.DB) *ClockService {
	return &ClockService{DB: db, Clock: clockwork.NewRealClock()}
}

func (s *ClockService) now() int64 {
	return s.Clock.Now().Unix()
}

// stateTx fetches (creating if absent) the singleton clock row.
func (s *ClockService) stateTx(tx *gorm.DB) (*models.GameClock, error) {
	var clock models.GameClock
	err := tx.Where("id = ?", 1).First(&clock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		clock = models.GameClock{ID: 1}
		if err := tx.Create(&clock).Error; err != nil {
			return nil, err
		}
		return &clock, nil
	}
	if err != nil {
		return nil, err
	}
	return &clock, nil
}

// State returns the current clock row.
func (s *ClockService) State() (*models.GameClock, error) {
	var clock *models.GameClock
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		clock, err = s.stateTx(tx)
		return err
	})
	return clock, err
}

// Start arms the clock once. startTime may be in the future, in which case
// accrual stays at zero until it arrives; zero means "now".
func (s *ClockService) Start(startTime int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		clock, err := s.stateTx(tx)
		if err != nil {
			return err
		}
		if clock.Started {
			return ErrClockAlreadyStarted
		}
		now := s.now()
		if startTime == 0 {
			startTime = now
		}
		if startTime < now {
			return ErrStartTimeInPast
		}
		clock.Started = true
		clock.Active = true
		clock.StartTime = startTime
		clock.LastResumeTime = startTime
		return tx.Save(clock).Error
	})
}

// Pause suspends accrual. Elapsed time during the pause window is skipped, not
// deferred — nobody accrues for it, ever.
func (s *ClockService) Pause() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		clock, err := s.stateTx(tx)
		if err != nil {
			return err
		}
		if clock.Ended {
			return ErrClockEnded
		}
		if !clock.Started {
			return ErrClockNotStarted
		}
		if !clock.Active {
			return ErrClockNotActive
		}
		clock.Active = false
		return tx.Save(clock).Error
	})
}

// Resume reactivates the clock and records the resume point the accrual engine
// clamps against.
func (s *ClockService) Resume() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		clock, err := s.stateTx(tx)
		if err != nil {
			return err
		}
		if clock.Ended {
			return ErrClockEnded
		}
		if !clock.Started {
			return ErrClockNotStarted
		}
		if clock.Active {
			return ErrClockNotPaused
		}
		clock.Active = true
		clock.LastResumeTime = s.now()
		return tx.Save(clock).Error
	})
}

// End is terminal: the clock can never be resumed afterwards.
func (s *ClockService) End() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		clock, err := s.stateTx(tx)
		if err != nil {
			return err
		}
		if clock.Ended {
			return ErrClockEnded
		}
		if !clock.Started {
			return ErrClockNotStarted
		}
		clock.Active = false
		clock.Ended = true
		return tx.Save(clock).Error
	})
}
