/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package dashboard

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// UpsertFunc persists an entity and returns its id, created is true when a
// new row was inserted.
type UpsertFunc func(ctx context.Context) (id int64, created bool, err error)

// AssociateFunc replaces the association set of entity id.
type AssociateFunc func(ctx context.Context, id int64, associatedIDs []int64) error

// SaveWithAssociations persists an entity, then its association set.
//
// A failed upsert aborts the save and is returned. A failed association
// call is only reported to notifier as a warning, the entity id is returned
// either way. A newly created entity without associations skips the second
// call. A nil notifier logs.
func SaveWithAssociations(ctx context.Context, label string, upsert UpsertFunc, associate AssociateFunc,
	associatedIDs []int64, notifier Notifier) (int64, error) {
	if notifier == nil {
		notifier = LogNotifier{}
	}

	id, created, err := upsert(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "save %s", label)
	}

	if created && len(associatedIDs) == 0 {
		return id, nil
	}

	if err := associate(ctx, id, associatedIDs); err != nil {
		notifier.Notify(Notification{
			Level:   LevelWarning,
			Message: fmt.Sprintf("%s %d saved, but its associations were not updated", label, id),
			Err:     err,
		})
	}
	return id, nil
}
