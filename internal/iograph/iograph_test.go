package iograph_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/internal/iograph"
	"github.com/gnames/gnnub/pkg/ent/issue"
	"github.com/gnames/gnnub/pkg/ent/rank"
	"github.com/gnames/gnnub/pkg/ent/status"
	"github.com/gnames/gnnub/pkg/ent/usage"
	"github.com/gnames/gnnub/pkg/errcode"
	"github.com/gnames/gnnub/pkg/gnnub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodes() []usage.NubUsage {
	return []usage.NubUsage{
		{
			Key:             1,
			ScientificName:  "Plantae",
			CanonicalName:   "Plantae",
			Rank:            rank.Kingdom,
			Kingdom:         "Plantae",
			TaxonomicStatus: status.Accepted,
			Sources:         []string{"1:k1"},
		},
		{
			Key:             2,
			ScientificName:  "Abies Mill.",
			CanonicalName:   "Abies",
			Authorship:      "Mill.",
			Rank:            rank.Genus,
			Kingdom:         "Plantae",
			TaxonomicStatus: status.Accepted,
			ParentKey:       1,
			Sources:         []string{"1:g1", "3:10"},
		},
		{
			Key:             5,
			ScientificName:  "Abies alba Mill., 1768",
			CanonicalName:   "Abies alba",
			Authorship:      "Mill.",
			Year:            "1768",
			Rank:            rank.Species,
			Kingdom:         "Plantae",
			TaxonomicStatus: status.Synonym,
			AcceptedKey:     2,
			BasionymKey:     2,
			NomStatus:       []string{"conserved"},
			Issues:          []issue.Issue{issue.ChainedSynonym, issue.WeakMatch},
			Deleted:         true,
		},
	}
}

func TestImplements(t *testing.T) {
	s, err := iograph.Open(iograph.Memory)
	require.NoError(t, err)
	defer s.Close()
	assert.Implements(t, (*gnnub.GraphStore)(nil), s)
}

func TestSaveLoad(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "backbone.sqlite")

	s, err := iograph.Open(path)
	require.NoError(t, err)

	maxKey, err := s.MaxKey(ctx)
	require.NoError(t, err)
	assert.Equal(0, maxKey)

	res, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(res)

	require.NoError(t, s.Save(ctx, nodes(), 7))
	require.NoError(t, s.Close())

	// reopen to read from disk
	s, err = iograph.Open(path)
	require.NoError(t, err)
	defer s.Close()

	res, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(nodes(), res)

	maxKey, err = s.MaxKey(ctx)
	require.NoError(t, err)
	assert.Equal(7, maxKey)
}

func TestSaveReplaces(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s, err := iograph.Open(iograph.Memory)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, nodes(), 5))
	require.NoError(t, s.Save(ctx, nodes()[:1], 5))

	res, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(res, 1)
	assert.Equal("Plantae", res[0].CanonicalName)

	maxKey, err := s.MaxKey(ctx)
	require.NoError(t, err)
	assert.Equal(5, maxKey)
}

func TestSaveMaxKeyFromNodes(t *testing.T) {
	ctx := context.Background()
	s, err := iograph.Open(iograph.Memory)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, nodes(), 0))
	maxKey, err := s.MaxKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, maxKey)
}

func TestSaveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := iograph.Open(iograph.Memory)
	require.NoError(t, err)
	defer s.Close()

	err = s.Save(ctx, nodes(), 5)
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.GraphSaveError, gnErr.Code)
}

func TestOpenBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "backbone.sqlite")
	_, err := iograph.Open(path)
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.GraphOpenError, gnErr.Code)
}
