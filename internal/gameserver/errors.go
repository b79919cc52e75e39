package gameserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/rpcombat/internal/game/rules"
	"github.com/cory-johannsen/rpcombat/internal/storage/postgres"
)

// toStatus maps an engine or storage error onto a gRPC status error.
// Errors that already carry a status pass through unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, rules.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, rules.ErrNotFound), errors.Is(err, postgres.ErrCharacterNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, rules.ErrInvariant):
		return status.Error(codes.Internal, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
