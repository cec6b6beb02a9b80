// Package identity describes the emulated client presented to the source.
//
// A Profile is built once at startup and handed read-only to every browser
// session, so repeated sessions look like the same unremarkable desktop client.
package identity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Default fingerprint values used when configuration leaves them unset.
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/137.0.7117.1 Safari/537.36"
	DefaultTimezone      = "Asia/Shanghai"
	DefaultPlatform      = "Win32"
	DefaultWebGLVendor   = "NVIDIA GeForce GTX 1050 Ti"
	DefaultWebGLRenderer = "ANGLE (NVIDIA, NVIDIA GeForce GTX 1050 Ti Direct3D11 vs_5_0 ps_5_0, D3D11-23.21.13.8800)"
)

// Profile is the immutable set of fingerprint attributes applied before navigation.
type Profile struct {
	Languages           []string
	Timezone            string
	Platform            string
	HardwareConcurrency int
	DeviceMemory        int
	UserAgent           string
	WebGLVendor         string
	WebGLRenderer       string
	ViewportWidth       int
	ViewportHeight      int
	// Stealth enables the generic automation-evasion bundle on top of the overrides.
	Stealth bool
}

// Default returns the desktop profile the watcher ships with.
func Default() Profile {
	return Profile{
		Languages:           []string{"zh-CN", "zh", "en-US", "en"},
		Timezone:            DefaultTimezone,
		Platform:            DefaultPlatform,
		HardwareConcurrency: 6,
		DeviceMemory:        8,
		UserAgent:           DefaultUserAgent,
		WebGLVendor:         DefaultWebGLVendor,
		WebGLRenderer:       DefaultWebGLRenderer,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		Stealth:             true,
	}
}

// New copies p so later mutation of the caller's slices cannot leak into sessions.
func New(p Profile) (Profile, error) {
	p.Languages = append([]string(nil), p.Languages...)
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate enforces the attributes every session relies on.
func (p Profile) Validate() error {
	if len(p.Languages) == 0 {
		return fmt.Errorf("identity: at least one language is required")
	}
	for _, lang := range p.Languages {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("identity: empty language tag")
		}
	}
	if strings.TrimSpace(p.Timezone) == "" {
		return fmt.Errorf("identity: timezone is required")
	}
	if strings.TrimSpace(p.UserAgent) == "" {
		return fmt.Errorf("identity: user agent is required")
	}
	if p.HardwareConcurrency <= 0 {
		return fmt.Errorf("identity: hardware concurrency must be > 0")
	}
	if p.DeviceMemory <= 0 {
		return fmt.Errorf("identity: device memory must be > 0")
	}
	if p.ViewportWidth <= 0 || p.ViewportHeight <= 0 {
		return fmt.Errorf("identity: viewport must be positive")
	}
	return nil
}

// Locale is the primary language tag.
func (p Profile) Locale() string {
	if len(p.Languages) == 0 {
		return ""
	}
	return p.Languages[0]
}

// AcceptLanguage renders the Accept-Language header value.
func (p Profile) AcceptLanguage() string {
	return strings.Join(p.Languages, ",")
}

// scriptParams is the subset of the profile consumed by the override script.
type scriptParams struct {
	Languages           []string `json:"languages"`
	Platform            string   `json:"platform"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	DeviceMemory        int      `json:"deviceMemory"`
	Timezone            string   `json:"timezone"`
	WebGLVendor         string   `json:"webglVendor"`
	WebGLRenderer       string   `json:"webglRenderer"`
}

// OverrideScript returns the JavaScript evaluated on every new document.
// Navigator properties, the resolved timezone, canvas output and the
// unmasked WebGL vendor/renderer parameters are all pinned to the profile.
func (p Profile) OverrideScript() (string, error) {
	params, err := json.Marshal(scriptParams{
		Languages:           p.Languages,
		Platform:            p.Platform,
		HardwareConcurrency: p.HardwareConcurrency,
		DeviceMemory:        p.DeviceMemory,
		Timezone:            p.Timezone,
		WebGLVendor:         p.WebGLVendor,
		WebGLRenderer:       p.WebGLRenderer,
	})
	if err != nil {
		return "", fmt.Errorf("identity: encode script params: %w", err)
	}
	return fmt.Sprintf(overrideTemplate, params), nil
}

// 37445/37446 are UNMASKED_VENDOR_WEBGL / UNMASKED_RENDERER_WEBGL.
const overrideTemplate = `(() => {
  const p = %s;
  const pin = (obj, key, value) => {
    try {
      Object.defineProperty(obj, key, { get: () => value, configurable: true });
    } catch (e) {}
  };
  pin(Navigator.prototype, 'languages', Object.freeze(p.languages.slice()));
  pin(Navigator.prototype, 'language', p.languages[0]);
  pin(Navigator.prototype, 'platform', p.platform);
  pin(Navigator.prototype, 'hardwareConcurrency', p.hardwareConcurrency);
  pin(Navigator.prototype, 'deviceMemory', p.deviceMemory);

  const resolvedOptions = Intl.DateTimeFormat.prototype.resolvedOptions;
  Intl.DateTimeFormat.prototype.resolvedOptions = function () {
    const opts = resolvedOptions.apply(this, arguments);
    opts.timeZone = p.timezone;
    return opts;
  };

  const toDataURL = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function () {
    const ctx = this.getContext('2d');
    if (ctx) {
      ctx.fillStyle = 'rgba(100,100,100,0.1)';
      ctx.fillRect(0, 0, this.width, this.height);
    }
    return toDataURL.apply(this, arguments);
  };

  const patchGL = (proto) => {
    if (!proto) return;
    const getParameter = proto.getParameter;
    proto.getParameter = function (parameter) {
      if (parameter === 37445 && p.webglVendor) return p.webglVendor;
      if (parameter === 37446 && p.webglRenderer) return p.webglRenderer;
      return getParameter.apply(this, arguments);
    };
  };
  patchGL(window.WebGLRenderingContext && WebGLRenderingContext.prototype);
  patchGL(window.WebGL2RenderingContext && WebGL2RenderingContext.prototype);
})();`
