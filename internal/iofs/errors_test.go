package iofs

import (
	"errors"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	originalErr := errors.New("permission denied")

	tests := []struct {
		msg  string
		fn   func(string, error) error
		path string
		code gn.ErrorCode
		text string
	}{
		{"create dir", CreateDirError, "/test/dir", errcode.CreateDirError, "cannot create"},
		{"copy file", CopyFileError, "/test/config.yaml", errcode.CopyFileError, "cannot copy"},
		{"read file", ReadFileError, "/test/data.yaml", errcode.ReadFileError, "cannot read"},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			err := v.fn(v.path, originalErr)

			gnErr, ok := err.(*gn.Error)
			require.True(t, ok, "Error should be of type *gn.Error")
			assert.Equal(t, v.code, gnErr.Code)
			assert.Contains(t, gnErr.Msg, "%s")
			require.Len(t, gnErr.Vars, 1)
			assert.Equal(t, v.path, gnErr.Vars[0])
			assert.ErrorIs(t, gnErr.Err, originalErr)
			assert.Contains(t, gnErr.Err.Error(), v.text)
		})
	}
}
