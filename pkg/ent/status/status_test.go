package status_test

import (
	"testing"

	"github.com/gnames/gnnub/pkg/ent/status"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		inp string
		res status.Status
	}{
		{"ACCEPTED", status.Accepted},
		{"PROVISIONALLY_ACCEPTED", status.ProvisionallyAccepted},
		{"synonym", status.Synonym},
		{"AMBIGUOUS_SYNONYM", status.AmbiguousSynonym},
		{"misapplied", status.Misapplied},
		{"homotypic synonym", status.Synonym},
		{"", status.Unknown},
	}
	for _, v := range tests {
		assert.Equal(t, v.res, status.New(v.inp), v.inp)
	}
}

func TestIsSynonym(t *testing.T) {
	assert.True(t, status.Synonym.IsSynonym())
	assert.True(t, status.Misapplied.IsSynonym())
	assert.False(t, status.Accepted.IsSynonym())
	assert.False(t, status.Doubtful.IsSynonym())
	assert.Equal(t, "ambiguous synonym", status.AmbiguousSynonym.String())
}
