package shaders

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gekko3d/rainfx/rt/core"
	"github.com/stretchr/testify/assert"
)

func TestUpdateKernelMatchesHost(t *testing.T) {
	assert.True(t, strings.HasPrefix(UpdateWGSL, RandomWGSL))
	assert.Contains(t, UpdateWGSL, "fn "+UpdateEntry+"(")
	assert.Contains(t, UpdateWGSL, fmt.Sprintf("@workgroup_size(%d)", core.WorkgroupSize))
	assert.Contains(t, UpdateWGSL, "fn rain_hash(")
}

func TestHashConstantsMatchHost(t *testing.T) {
	// The multipliers below must stay in sync with core.Hash.
	for _, c := range []string{"747796405u", "2891336453u", "277803737u", "16777216.0"} {
		assert.Contains(t, RandomWGSL, c)
	}
}

func TestRenderShadersHaveEntries(t *testing.T) {
	for name, src := range map[string]string{"raindrop": RaindropWGSL, "splash": SplashWGSL} {
		assert.Contains(t, src, "fn "+VertexEntry+"(", name)
		assert.Contains(t, src, "fn "+FragmentEntry+"(", name)
	}
	assert.Contains(t, SplashWGSL, "texture_2d<f32>")
}
