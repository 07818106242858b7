package uri

import (
	"errors"
	"testing"
)

func TestParseConcreteScenarios(t *testing.T) {
	u, err := Parse([]byte("https://example.com:8443/a/b?x=1&y="))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer u.Release()

	if got := string(u.Scheme()); got != "https" {
		t.Errorf("Scheme = %q, want %q", got, "https")
	}
	if got := string(u.HostName()); got != "example.com" {
		t.Errorf("HostName = %q, want %q", got, "example.com")
	}
	if u.Port() != 8443 {
		t.Errorf("Port = %d, want 8443", u.Port())
	}
	if got := string(u.Path()); got != "/a/b" {
		t.Errorf("Path = %q, want %q", got, "/a/b")
	}
	if got := string(u.QueryString()); got != "x=1&y=" {
		t.Errorf("QueryString = %q, want %q", got, "x=1&y=")
	}

	var params []Param
	if err := QueryStringParams(u, &params); err != nil {
		t.Fatalf("QueryStringParams: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("len(params) = %d, want 2", len(params))
	}
	if string(params[0].Key) != "x" || string(params[0].Value) != "1" {
		t.Errorf("params[0] = %q=%q, want x=1", params[0].Key, params[0].Value)
	}
	if string(params[1].Key) != "y" || string(params[1].Value) != "" {
		t.Errorf("params[1] = %q=%q, want y=", params[1].Key, params[1].Value)
	}
}

func TestParseNoScheme(t *testing.T) {
	u, err := Parse([]byte("example.com"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer u.Release()

	if len(u.Scheme()) != 0 {
		t.Errorf("Scheme = %q, want empty", u.Scheme())
	}
	if got := string(u.Authority()); got != "example.com" {
		t.Errorf("Authority = %q, want %q", got, "example.com")
	}
	if got := string(u.HostName()); got != "example.com" {
		t.Errorf("HostName = %q, want %q", got, "example.com")
	}
	if u.Port() != 0 {
		t.Errorf("Port = %d, want 0", u.Port())
	}
	if got := string(u.Path()); got != "/" {
		t.Errorf("Path = %q, want %q", got, "/")
	}
	if len(u.QueryString()) != 0 {
		t.Errorf("QueryString = %q, want empty", u.QueryString())
	}
}

func TestParseMalformedPort(t *testing.T) {
	cases := []string{
		"http://h:99999/", // >65535 and >5 digits
		"http://h:/p",     // empty port digits
		"http://h:12a45/", // non-digit
		"http://h:123456/", // 6 digits
	}
	for _, c := range cases {
		_, err := Parse([]byte(c))
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedInput", c, err)
		}
	}
}

func TestParseMalformedScheme(t *testing.T) {
	cases := []string{
		"",
		"http:/host/path", // single slash, not "://"
	}
	for _, c := range cases {
		_, err := Parse([]byte(c))
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedInput", c, err)
		}
	}
}

func TestParseQueryOnlyNoPath(t *testing.T) {
	u, err := Parse([]byte("http://h?x=1"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer u.Release()

	if got := string(u.Path()); got != "/" {
		t.Errorf("Path = %q, want %q", got, "/")
	}
	if got := string(u.QueryString()); got != "x=1" {
		t.Errorf("QueryString = %q, want %q", got, "x=1")
	}
}

func TestParsePathNoQuery(t *testing.T) {
	u, err := Parse([]byte("http://h/a/b/c"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer u.Release()

	if got := string(u.Path()); got != "/a/b/c" {
		t.Errorf("Path = %q, want %q", got, "/a/b/c")
	}
	if got := string(u.PathAndQuery()); got != "/a/b/c" {
		t.Errorf("PathAndQuery = %q, want %q", got, "/a/b/c")
	}
	if len(u.QueryString()) != 0 {
		t.Errorf("QueryString = %q, want empty", u.QueryString())
	}
}

func TestPortZeroIffNoColonInAuthority(t *testing.T) {
	withColon, err := Parse([]byte("http://h:80/"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer withColon.Release()
	if withColon.Port() == 0 {
		t.Errorf("Port() = 0, want nonzero for authority with ':'")
	}

	withoutColon, err := Parse([]byte("http://h/"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer withoutColon.Release()
	if withoutColon.Port() != 0 {
		t.Errorf("Port() = %d, want 0 for authority without ':'", withoutColon.Port())
	}
}

func TestParseReleaseOnFailureZeroesRecord(t *testing.T) {
	_, err := Parse([]byte("http://h:99999/"))
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	// Parse returns a nil *URI on failure; nothing further to release.
}
