package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"paycollect/internal/gateway"
	"paycollect/internal/repository"
	"paycollect/internal/service"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want service.ErrorKind
	}{
		{"invalid amount", service.ErrInvalidAmount, service.KindValidation},
		{"wrapped missing reference", fmt.Errorf("verify: %w", service.ErrMissingReference), service.KindValidation},
		{"missing hash", service.ErrMissingWebhookHash, service.KindAuthentication},
		{"bad hash", service.ErrInvalidWebhookHash, service.KindAuthentication},
		{"not found", repository.ErrNotFound, service.KindNotFound},
		{"rejection", &service.GatewayRejectionError{StatusCode: 401}, service.KindGatewayRejection},
		{"transport", &gateway.TransportError{Op: "verify_by_id", Err: context.DeadlineExceeded}, service.KindTransport},
		{"malformed", service.ErrMalformedResponse, service.KindMalformedUpstream},
		{"gateway malformed", gateway.ErrMalformedResponse, service.KindMalformedUpstream},
		{"verification failed", &service.VerificationFailedError{ReportedStatus: "success", TransactionStatus: "pending"}, service.KindVerificationFailed},
		{"in progress", service.ErrReconcileInProgress, service.KindConflict},
		{"duplicate reference", repository.ErrDuplicateReference, service.KindInternal},
		{"unknown", errors.New("boom"), service.KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, service.KindOf(tc.err))
		})
	}
}
