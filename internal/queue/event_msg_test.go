package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleEventValidate(t *testing.T) {
	valid := LifecycleEvent{
		EventID:    "evt-1",
		RequestID:  42,
		Type:       EventAccepted,
		ActorID:    7,
		OccurredAt: 1700000000,
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*LifecycleEvent)
	}{
		{"missing event id", func(m *LifecycleEvent) { m.EventID = "" }},
		{"missing request id", func(m *LifecycleEvent) { m.RequestID = 0 }},
		{"unknown type", func(m *LifecycleEvent) { m.Type = "exploded" }},
		{"missing actor", func(m *LifecycleEvent) { m.ActorID = 0 }},
		{"missing timestamp", func(m *LifecycleEvent) { m.OccurredAt = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := valid
			tc.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}

	for _, typ := range []string{EventCreated, EventAccepted, EventCompleted, EventAcknowledged, EventCancelled} {
		m := valid
		m.Type = typ
		assert.NoError(t, m.Validate())
	}
}
