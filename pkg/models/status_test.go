package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchStatus_Transient(t *testing.T) {
	transient := []FetchStatus{StatusRateLimited, StatusServerError, StatusNetworkError, StatusTimeout}
	for _, s := range transient {
		assert.True(t, s.Transient(), string(s))
	}

	terminal := []FetchStatus{StatusUnset, StatusSuccess, StatusBlocked, StatusClientError}
	for _, s := range terminal {
		assert.False(t, s.Transient(), string(s))
	}
}

func TestFetchStatus_String(t *testing.T) {
	assert.Equal(t, "unset", StatusUnset.String())
	assert.Equal(t, "blocked", StatusBlocked.String())
}

func TestFetchStatus_IsValid(t *testing.T) {
	assert.True(t, StatusSuccess.IsValid())
	assert.True(t, StatusTimeout.IsValid())
	assert.False(t, StatusUnset.IsValid())
	assert.False(t, FetchStatus("weird").IsValid())
}

func TestFrontierItem_VisitKey(t *testing.T) {
	a := FrontierItem{Target: "https://x.test/p", SourceTag: "search/shoes"}
	b := FrontierItem{Target: "https://x.test/p", SourceTag: "search/bags"}

	assert.Equal(t, "search/shoes|https://x.test/p", a.VisitKey())
	assert.NotEqual(t, a.VisitKey(), b.VisitKey(), "same target under different tags is distinct work")
}
