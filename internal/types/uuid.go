package types

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex subs_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

// initializeSID initializes the shortid generator once
func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortID returns a short unique code, used for affiliate referral codes
func GenerateShortID() string {
	once.Do(initializeSID)
	id, err := sidGenerator.Generate()
	if err != nil {
		// shortid generation is effectively infallible after init, fall back to ULID
		return GenerateUUID()
	}
	return id
}

const (
	UUID_PREFIX_ACCOUNT       = "acct"
	UUID_PREFIX_SUBSCRIPTION  = "subs"
	UUID_PREFIX_COMMISSION    = "comm"
	UUID_PREFIX_WEBHOOK_EVENT = "webh"
	UUID_PREFIX_FALLBACK      = "fbk"
	UUID_PREFIX_REGISTRATION  = "reg"
)
