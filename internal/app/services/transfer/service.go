// Package transfer orchestrates ownership transfers. The orchestrator owns
// the authorization checks and recipient resolution; atomicity of the final
// commit belongs to the store.
package transfer

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/identity"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
	svcerrors "github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/logger"
)

// ConfirmationMessage is returned to the caller on a committed transfer.
const ConfirmationMessage = "Asset transferred successfully"

// Invalidator drops cached reads made stale by a committed transfer.
// *catalog.Service satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context, assetID string, ownerIDs ...string)
}

// Recorder counts transfer outcomes for the metrics endpoint.
type Recorder interface {
	RecordTransfer(outcome string)
}

// Service validates and commits ownership transfers.
type Service struct {
	store       storage.AssetStore
	resolver    identity.Resolver
	invalidator Invalidator
	recorder    Recorder
	log         *logger.Logger
}

// New constructs a transfer service.
func New(store storage.AssetStore, resolver identity.Resolver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("transfer")
	}
	return &Service{store: store, resolver: resolver, log: log}
}

// SetInvalidator wires cache invalidation after commits. Optional.
func (s *Service) SetInvalidator(inv Invalidator) { s.invalidator = inv }

// SetRecorder wires outcome metrics. Optional.
func (s *Service) SetRecorder(rec Recorder) { s.recorder = rec }

// Transfer moves assetID from fromUserID to the account behind toEmail.
// Checks run in a fixed order and the first failure wins; nothing is
// written unless every check passes and the store commits atomically.
func (s *Service) Transfer(ctx context.Context, assetID, callerID, fromUserID, toEmail string) (string, error) {
	msg, err := s.transfer(ctx, assetID, callerID, fromUserID, toEmail)
	s.record(err)
	return msg, err
}

func (s *Service) transfer(ctx context.Context, assetID, callerID, fromUserID, toEmail string) (string, error) {
	if strings.TrimSpace(callerID) == "" {
		return "", svcerrors.Unauthenticated("authentication required")
	}
	if callerID != fromUserID {
		return "", svcerrors.Forbidden("cannot transfer assets on behalf of another user")
	}
	if strings.TrimSpace(assetID) == "" {
		return "", svcerrors.Validation("asset_id is required")
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return "", svcerrors.Validation("to_user_email is not a valid email address")
	}

	a, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", svcerrors.NotFound("asset", assetID)
		}
		return "", svcerrors.StoreUnavailable(err)
	}
	if a.Owner != fromUserID {
		return "", svcerrors.Forbidden("Not authorized to transfer this asset")
	}

	recipient, err := s.resolver.ResolveByEmail(ctx, toEmail)
	if err != nil {
		if svcErr := svcerrors.GetServiceError(err); svcErr != nil {
			return "", svcErr
		}
		return "", svcerrors.StoreUnavailable(err)
	}

	tx, err := s.store.TransferAsset(ctx, assetID, fromUserID, recipient.ID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrOwnerChanged):
			return "", svcerrors.Conflict("asset owner changed during transfer")
		case errors.Is(err, storage.ErrNotFound):
			return "", svcerrors.NotFound("asset", assetID)
		default:
			return "", svcerrors.TransferFailed(err)
		}
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, assetID, fromUserID, recipient.ID)
	}
	s.log.WithContext(ctx).
		WithField("asset_id", assetID).
		WithField("from_user_id", fromUserID).
		WithField("to_user_id", recipient.ID).
		WithField("transaction_id", tx.ID).
		Info("asset transferred")
	return ConfirmationMessage, nil
}

func (s *Service) record(err error) {
	if s.recorder == nil {
		return
	}
	if err == nil {
		s.recorder.RecordTransfer("committed")
		return
	}
	if svcErr := svcerrors.GetServiceError(err); svcErr != nil {
		s.recorder.RecordTransfer(strings.ToLower(string(svcErr.Code)))
		return
	}
	s.recorder.RecordTransfer("failed")
}
