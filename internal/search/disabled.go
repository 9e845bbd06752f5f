package search

import "context"

// Disabled is used when no search backend is configured; every call reports
// ErrUnavailable so queries run against the store alone.
type Disabled struct{}

func (Disabled) Upsert(context.Context, []Document) error { return ErrUnavailable }

func (Disabled) Delete(context.Context, []string) error { return ErrUnavailable }

func (Disabled) Search(context.Context, Query) ([]Document, error) { return nil, ErrUnavailable }

func (Disabled) Ping(context.Context) error { return ErrUnavailable }

func (Disabled) Close() error { return nil }
