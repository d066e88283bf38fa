// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schemauc

import (
	"errors"
	"fmt"
	"time"
)

// Option is a functional option for the schema records use case.
type Option func(uc *UseCase) error

// WithClock option configures a schemauc UseCase instance to read the
// current time from the given function instead of time.Now, so record
// and change log timestamps become reproducible in tests. This option
// may be passed to the New() function.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) error {
		if now == nil {
			return errors.New("clock function must not be nil")
		}
		if uc.now != nil {
			return errors.New("clock is already configured")
		}
		uc.now = now
		return nil
	}
}

// WithChangeHook option configures a schemauc UseCase instance to call
// the given hook after every change log append, within the mutating
// transaction. This option may be passed to the New() function.
func WithChangeHook(hook ChangeHook) Option {
	return func(uc *UseCase) error {
		if hook == nil {
			return errors.New("change hook must not be nil")
		}
		if uc.hook != nil {
			return errors.New("change hook is already configured")
		}
		uc.hook = hook
		return nil
	}
}

// WithLenientValidation option configures a schemauc UseCase instance
// to stop definition validation at the first detected issue instead of
// aggregating all of them. This option may be passed to the New()
// function.
func WithLenientValidation() Option {
	return func(uc *UseCase) error {
		if uc.lenient {
			return errors.New("lenient validation is already configured")
		}
		uc.lenient = true
		return nil
	}
}

// WithRecentChangesLimit option configures the upper bound of the
// RecentChanges listing. This option may be passed to the New()
// function.
func WithRecentChangesLimit(limit int) Option {
	return func(uc *UseCase) error {
		if limit <= 0 {
			return fmt.Errorf("limit (%d) is not positive", limit)
		}
		if uc.recentLimit != 0 {
			return errors.New("recent changes limit is already configured")
		}
		uc.recentLimit = limit
		return nil
	}
}
