package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefilter_KnownIDsAlwaysPass(t *testing.T) {
	ids := []string{"p1", "p2", "p3"}
	p := NewPrefilter(ids)

	for _, id := range ids {
		assert.True(t, p.MayExist(id), id)
	}
}

func TestPrefilter_AddedIDPasses(t *testing.T) {
	p := NewPrefilter(nil)
	assert.False(t, p.MayExist("later"))

	p.Add("later")
	assert.True(t, p.MayExist("later"))
}
