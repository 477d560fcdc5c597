package formats_test

import "github.com/google/uuid"

func newTestUUID() uuid.UUID { return uuid.New() }
