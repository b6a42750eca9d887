package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyDeliveryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"incomplete config", &IncompleteConfigError{Sink: "smtp", Missing: []string{"EMAIL_PASSWORD"}}, KindConfigurationIncomplete},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), KindDeliveryTimeout},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, KindDeliveryTimeout},
		{"transport", NewTransportError("smtp auth", errors.New("535 bad credentials")), KindDeliveryTransport},
		{"textproto", &textproto.Error{Code: 550, Msg: "mailbox unavailable"}, KindDeliveryTransport},
		{"net op", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindDeliveryTransport},
		{"other", errors.New("boom"), KindDeliveryUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDeliveryError(tt.err))
		})
	}
}

func TestNewTransportError_Nil(t *testing.T) {
	assert.NoError(t, NewTransportError("op", nil))
}

func TestDigestResult_FailAndWarn(t *testing.T) {
	r := &DigestResult{StartedAt: time.Now()}
	r.Fail(KindDeliveryTimeout, context.DeadlineExceeded)

	assert.False(t, r.Succeeded())
	assert.Equal(t, KindDeliveryTimeout, r.Kind)
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)

	var digestErr *DigestError
	assert.ErrorAs(t, r.Err, &digestErr)

	r.Warn(KindPersistence, errors.New("disk full"))
	assert.Equal(t, []string{"persistence_error: disk full"}, r.Warnings)
}

func TestLabels_FormatDay(t *testing.T) {
	day := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "Sunday 05 January 2025", EnglishLabels().FormatDay(day))
	assert.Equal(t, "Dimanche 05 janvier 2025", FrenchLabels().FormatDay(day))
	assert.Equal(t, "Résumé quotidien", LabelsFor("fr").Title)
	assert.Equal(t, "Daily digest", LabelsFor("de").Title)
}
