package bridge

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
)

// Element ids the scripts own in the page
const (
	hideStyleID   = "tweetduck-hide"
	logoStyleID   = "tweetduck-logo"
	updateBarID   = "tweetduck-update"
	themeAttrName = "data-tweetduck-theme"
)

//go:embed assets/logo.svg
var logoSVG []byte

// BootstrapScript runs at document start on every page. It exposes the
// channel under the WebKit message-handler shape the page scripts expect and
// hides content until the shell reveals it. Popups and targeted links are
// folded into top-level navigations of the view.
const BootstrapScript = `(function () {
  var post = function (msg) {
    if (typeof window.duckDuckDo === 'function') { window.duckDuckDo(String(msg)); }
  };
  window.webkit = window.webkit || {};
  window.webkit.messageHandlers = window.webkit.messageHandlers || {};
  window.webkit.messageHandlers.duckDuckDo = { postMessage: post };
  window.open = function (u) {
    if (u) { window.location.assign(String(u)); }
    return null;
  };
  if (typeof document.addEventListener === 'function') {
    document.addEventListener('click', function (e) {
      var a = e.target;
      while (a && a.tagName !== 'A') { a = a.parentNode; }
      if (!a || !a.href) { return; }
      var t = a.getAttribute('target');
      if (t && t !== '_self' && t !== '_top' && t !== '_parent') {
        e.preventDefault();
        window.location.assign(a.href);
      }
    }, true);
  }
  if (!document.getElementById('` + hideStyleID + `')) {
    var s = document.createElement('style');
    s.id = '` + hideStyleID + `';
    s.textContent = 'html { visibility: hidden !important; }';
    (document.head || document.documentElement).appendChild(s);
  }
})();`

// RevealScript removes the bootstrap hide style
const RevealScript = `(function () {
  var s = document.getElementById('` + hideStyleID + `');
  if (s && s.parentNode) { s.parentNode.removeChild(s); }
  return true;
})();`

// AppearanceScript pushes mode into the application's theme setting. Auto
// follows the page's prefers-color-scheme. Returns the applied theme, or
// null when the application is not available.
func AppearanceScript(mode types.AppearanceMode) string {
	return fmt.Sprintf(`(function (mode) {
  if (mode === 'auto') {
    mode = (window.matchMedia && window.matchMedia('(prefers-color-scheme: dark)').matches) ? 'dark' : 'light';
  }
  document.documentElement.setAttribute('%s', mode);
  if (window.TD && TD.settings && typeof TD.settings.setTheme === 'function') {
    TD.settings.setTheme(mode);
    return mode;
  }
  return null;
})(%s);`, themeAttrName, jsString(mode.String()))
}

// LogoScript replaces the application header logo
func LogoScript() string {
	uri := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(logoSVG)
	css := ".app-title, .js-logo { background-image: url(" + uri + ") !important; background-size: contain !important; }"
	return fmt.Sprintf(`(function (css) {
  if (document.getElementById('%s')) { return false; }
  var s = document.createElement('style');
  s.id = '%s';
  s.textContent = css;
  (document.head || document.documentElement).appendChild(s);
  return true;
})(%s);`, logoStyleID, logoStyleID, jsString(css))
}

// UpdateBannerScript shows a link to the post-update sentinel URI. Following
// the link is a navigation the classifier cancels, which is what triggers
// the host-side update action.
func UpdateBannerScript(scheme, version string) string {
	return fmt.Sprintf(`(function (href, version) {
  if (document.getElementById('%s') || !document.body) { return false; }
  var a = document.createElement('a');
  a.id = '%s';
  a.setAttribute('href', href);
  a.textContent = 'TweetDuck ' + version + ' is available';
  document.body.appendChild(a);
  return true;
})(%s, %s);`, updateBarID, updateBarID, jsString(scheme+"://update"), jsString(version))
}

// ProbeScript reports the application's readiness globals as a JSON string
// decodable into readiness.Probe.
func ProbeScript(sessionCookie string) string {
	return fmt.Sprintf(`(function (cookie) {
  var td = window.TD;
  var jar = ' ' + (document.cookie || '').split(';').join('; ').replace(/\s+/g, ' ');
  return JSON.stringify({
    appReady: !!(td && td.ready),
    appPresent: !!td,
    hasSession: jar.indexOf(' ' + cookie + '=') !== -1,
    documentComplete: document.readyState === 'complete',
    url: String(window.location && window.location.href || '')
  });
})(%s);`, jsString(sessionCookie))
}

// jsString returns s as a JavaScript string literal
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
