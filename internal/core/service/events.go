package service

import (
	"time"

	"github.com/taskboard/taskboard-api/internal/core/domain"
	"github.com/taskboard/taskboard-api/internal/core/ports"
)

// eventLog buffers the transitions of one operation. They are released only
// once the whole operation succeeded.
type eventLog struct {
	op     string
	events []domain.AssignmentEvent
}

func (l *eventLog) transition(taskID, from, to string) {
	typ, ok := domain.Transition(from, to)
	if !ok {
		return
	}
	l.add(taskID, typ, from, to)
}

func (l *eventLog) add(taskID string, typ domain.AssignmentEventType, from, to string) {
	l.events = append(l.events, domain.AssignmentEvent{
		TaskID:    taskID,
		Type:      typ,
		FromUser:  from,
		ToUser:    to,
		Operation: l.op,
		At:        time.Now().UTC(),
	})
}

func (l *eventLog) flush(p ports.EventPublisher) {
	if p == nil {
		return
	}
	for _, e := range l.events {
		p.Publish(e)
	}
	l.events = nil
}
