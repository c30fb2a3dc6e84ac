package services

import (
	"time"

	"taskmanager/backend/broker"
	"taskmanager/backend/database"
	"taskmanager/backend/models"

	"go.uber.org/zap"
)

type EventHandlerServiceInterface interface {
	DispatchEvent(event *models.Event)
	ProcessPendingEvents() (int, error)
}

// EventHandlerService publishes outbox events after their transaction commits.
// A nil publisher leaves every event pending.
type EventHandlerService struct {
	db        *database.Database
	publisher broker.Publisher
	logger    *zap.Logger
}

func NewEventHandlerService(db *database.Database, publisher broker.Publisher, logger *zap.Logger) *EventHandlerService {
	return &EventHandlerService{
		db:        db,
		publisher: publisher,
		logger:    logger,
	}
}

// DispatchEvent publishes a single event and marks it dispatched. Failures
// are logged; the event stays pending for ProcessPendingEvents.
func (s *EventHandlerService) DispatchEvent(event *models.Event) {
	if s == nil || s.publisher == nil || event == nil {
		return
	}
	if err := s.dispatch(*event); err != nil {
		s.logger.Warn("event dispatch failed",
			zap.String("event_id", event.ID.String()),
			zap.String("event", event.Event),
			zap.Error(err),
		)
	}
}

// ProcessPendingEvents publishes every event still pending, oldest first
func (s *EventHandlerService) ProcessPendingEvents() (int, error) {
	if s == nil || s.publisher == nil {
		return 0, nil
	}

	var events []models.Event
	if err := s.db.DB.Where("dispatched = ?", false).Order("timestamp ASC").Find(&events).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, event := range events {
		if err := s.dispatch(event); err != nil {
			s.logger.Warn("pending event dispatch failed",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *EventHandlerService) dispatch(event models.Event) error {
	msg, err := models.NewStandardMessage(event)
	if err != nil {
		return err
	}
	if id, ok := msg.Payload[event.Entity+"_id"].(string); ok {
		msg.WithResource(event.Entity, id)
	}

	data, err := msg.ToJSON()
	if err != nil {
		return err
	}

	if err := s.publisher.Publish(broker.SubjectForEntity(event.Entity), data); err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.db.DB.Model(&models.Event{}).Where("id = ?", event.ID).Updates(map[string]interface{}{
		"dispatched":    true,
		"dispatched_at": now,
		"status":        models.EventStatusDispatched,
	}).Error
}
