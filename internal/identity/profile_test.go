package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfileIsValid(t *testing.T) {
	t.Parallel()

	p := Default()
	require.NoError(t, p.Validate())
	assert.Equal(t, "zh-CN", p.Locale())
	assert.Equal(t, "zh-CN,zh,en-US,en", p.AcceptLanguage())
	assert.Equal(t, 6, p.HardwareConcurrency)
	assert.Equal(t, 8, p.DeviceMemory)
}

func TestValidateRejectsMissingAttributes(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Profile){
		"no languages":   func(p *Profile) { p.Languages = nil },
		"blank language": func(p *Profile) { p.Languages = []string{"en", " "} },
		"no timezone":    func(p *Profile) { p.Timezone = "" },
		"no user agent":  func(p *Profile) { p.UserAgent = "" },
		"zero cores":     func(p *Profile) { p.HardwareConcurrency = 0 },
		"zero memory":    func(p *Profile) { p.DeviceMemory = 0 },
		"zero viewport":  func(p *Profile) { p.ViewportWidth = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := Default()
			mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestNewCopiesLanguages(t *testing.T) {
	t.Parallel()

	src := Default()
	p, err := New(src)
	require.NoError(t, err)

	src.Languages[0] = "fr-FR"
	assert.Equal(t, "zh-CN", p.Locale())
}

func TestOverrideScriptIsStable(t *testing.T) {
	t.Parallel()

	p := Default()
	first, err := p.OverrideScript()
	require.NoError(t, err)
	second, err := p.OverrideScript()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, `"languages":["zh-CN","zh","en-US","en"]`)
	assert.Contains(t, first, `"platform":"Win32"`)
	assert.Contains(t, first, `"hardwareConcurrency":6`)
	assert.Contains(t, first, `"deviceMemory":8`)
	assert.Contains(t, first, `"timezone":"Asia/Shanghai"`)
	assert.Contains(t, first, "NVIDIA GeForce GTX 1050 Ti")
	assert.Contains(t, first, "37445")
}
