package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocument_SortKey(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := Document{GroupName: "Math - Fractions", GeneratedAt: at}
	b := Document{GroupName: "Science - Friction", GeneratedAt: at}

	assert.Less(t, a.SortKey(), b.SortKey())
}

func TestDocument_SortKeyNormalisesToUTC(t *testing.T) {
	utc := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*3600))

	a := Document{GroupName: "Math - Fractions", GeneratedAt: utc}
	b := Document{GroupName: "Math - Fractions", GeneratedAt: est}

	assert.Equal(t, a.SortKey(), b.SortKey())
}
