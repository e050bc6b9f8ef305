package session

import (
	"context"
	"errors"
	"fmt"

	"dupefinder/internal/groupstore"
	"dupefinder/internal/logging"
	"dupefinder/internal/services"
)

// DeleteMember deletes the file at group g, member m and, only when the
// deletion collaborator reports success, removes it from the store.
func (c *Coordinator) DeleteMember(ctx context.Context, g, m int) (groupstore.MutationOutcome, error) {
	c.deleteMu.Lock()
	defer c.deleteMu.Unlock()

	path, err := c.store.Member(g, m)
	if err != nil {
		return groupstore.MutationOutcome{}, err
	}
	return c.deleteLocked(ctx, path, func() (groupstore.MutationOutcome, error) {
		return c.store.RemoveMemberIf(g, m, path)
	})
}

// DeleteFile deletes path, which must be a member of a held duplicate group.
func (c *Coordinator) DeleteFile(ctx context.Context, path string) (groupstore.MutationOutcome, error) {
	c.deleteMu.Lock()
	defer c.deleteMu.Unlock()

	if _, _, ok := c.store.Find(path); !ok {
		return groupstore.MutationOutcome{}, services.Wrap(services.ErrIndexOutOfRange, "session", "delete",
			fmt.Sprintf("%q is not part of the current results", path), nil)
	}
	return c.deleteLocked(ctx, path, func() (groupstore.MutationOutcome, error) {
		return c.store.RemovePath(path)
	})
}

// deleteLocked removes path from disk and then applies commit to the store.
func (c *Coordinator) deleteLocked(ctx context.Context, path string, commit func() (groupstore.MutationOutcome, error)) (groupstore.MutationOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if id := c.SessionID(); id != "" {
		ctx = services.WithSessionID(ctx, id)
	}
	logger := logging.WithContext(ctx, c.logger)

	outcome := c.deleter.DeleteFile(ctx, path)
	if !outcome.Success {
		reason := outcome.Error
		if reason == "" {
			reason = "unknown error"
		}
		return groupstore.MutationOutcome{}, services.Wrap(services.ErrDeletionFailed, "session", "delete", path, errors.New(reason))
	}

	mutation, err := commit()
	if err != nil {
		// The store was replaced by a newer scan while the file was being removed.
		logging.WarnWithContext(logger, "deleted file no longer in results", "delete_store_changed",
			logging.String("path", path),
			logging.String(logging.FieldImpact, "results already reflect a newer scan"),
		)
		return groupstore.MutationOutcome{Path: path, RemainingGroups: c.store.Len()}, nil
	}
	logger.Info("duplicate removed",
		logging.String(logging.FieldEventType, "duplicate_removed"),
		logging.String("path", path),
		logging.Bool("group_removed", mutation.GroupRemoved),
		logging.Int("remaining_groups", mutation.RemainingGroups),
	)
	return mutation, nil
}
