// Package ses mirrors newly suppressed addresses into the AWS SES
// account-level suppression list, as a second line of defense in front of
// the database tables.
package ses

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/feedback-gateway/internal/config"
	"github.com/ignite/feedback-gateway/internal/pkg/logger"
)

// api is the slice of the SES v2 client the suppressor uses.
type api interface {
	PutSuppressedDestination(ctx context.Context, params *sesv2.PutSuppressedDestinationInput, optFns ...func(*sesv2.Options)) (*sesv2.PutSuppressedDestinationOutput, error)
}

// Suppressor pushes suppressed addresses to the SES account suppression
// list. Every push is best-effort with a bounded timeout; failures are
// logged and never block the disposition transaction, which has already
// committed by the time the suppressor runs.
type Suppressor struct {
	client  api
	timeout time.Duration
}

// NewSuppressor creates an SES-backed suppressor from config.
func NewSuppressor(ctx context.Context, cfg appconfig.SESConfig) (*Suppressor, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, err
	}
	return &Suppressor{
		client:  sesv2.NewFromConfig(awsCfg),
		timeout: 10 * time.Second,
	}, nil
}

// SuppressionRecorded mirrors one address. kind is "bounce" or "complaint"
// and maps onto the SES suppression reason.
func (s *Suppressor) SuppressionRecorded(_ context.Context, email, kind string) {
	reason := types.SuppressionListReasonComplaint
	if kind == "bounce" {
		reason = types.SuppressionListReasonBounce
	}

	// Detached from the request context on purpose: the mirror is
	// fire-and-forget and must not be cancelled by the webhook returning.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		_, err := s.client.PutSuppressedDestination(ctx, &sesv2.PutSuppressedDestinationInput{
			EmailAddress: aws.String(email),
			Reason:       reason,
		})
		if err != nil {
			logger.Warn("SES suppression mirror failed", "email", email, "error", err.Error())
			return
		}
		logger.Debug("SES suppression mirrored", "email", email, "reason", string(reason))
	}()
}
