package proxy

import (
	"net/url"
	"regexp"
	"strings"
)

// rootRelativeRe matches href/src attributes whose value starts with a
// single "/". The rewrite is a plain regex substitution, not a DOM-aware
// one: attribute values that merely contain a literal "/..." string can be
// over-matched, and attributes split across entities are missed. Known
// precision limit, kept because it handles the pages this service targets
// and avoids a full parse/serialize round trip.
var rootRelativeRe = regexp.MustCompile(`(href|src)="/([^"]*)"`)

// RewriteRootRelative turns root-relative href/src values into absolute
// URLs using the page's scheme and host. Absolute and fragment links are
// left untouched.
func RewriteRootRelative(html, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return html
	}
	base := u.Scheme + "://" + u.Host
	return rootRelativeRe.ReplaceAllString(html, `$1="`+base+`/$2"`)
}

// clickScript suppresses in-page navigation and reports the clicked URL
// to the embedding context instead; the host decides whether to follow,
// download, or open it.
const clickScript = `<script>
document.addEventListener('click', function (e) {
  var a = e.target.closest ? e.target.closest('a') : null;
  if (!a || !a.href) return;
  e.preventDefault();
  e.stopPropagation();
  window.parent.postMessage({ type: 'linkClick', url: a.href }, '*');
}, true);
</script>`

// InjectClickScript appends the click-interception script to an HTML body.
// Placement before </body> when present keeps the markup valid; otherwise
// the script is appended at the end, which browsers tolerate.
func InjectClickScript(html string) string {
	if i := strings.LastIndex(strings.ToLower(html), "</body>"); i >= 0 {
		return html[:i] + clickScript + html[i:]
	}
	return html + clickScript
}
