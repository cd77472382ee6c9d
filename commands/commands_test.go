package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/activecm/rita-threats/credentials"
	"github.com/activecm/rita-threats/datatypes/threat"
	"github.com/activecm/rita-threats/intelapi/intelapitest"
	"github.com/activecm/rita-threats/resources"
	"github.com/activecm/rita-threats/threatlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const commandsTestConfig = `
API:
    BaseURL: %s
Credentials:
    Source: %s
    Token: test-token
    TokenFile: %s
Threats:
    IP:
        Enabled: false
LogConfig:
    LogLevel: 0
UserConfig:
    UpdateCheckFrequency: 0
`

func init() {
	cli.OsExiter = func(int) {}
	cli.ErrWriter = ioutil.Discard
}

type harness struct {
	srv       *intelapitest.Server
	cfgPath   string
	tokenFile string
	errOut    bytes.Buffer
}

func newHarness(t *testing.T, source string) *harness {
	t.Helper()
	srv := intelapitest.NewServer("test-token")
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	h := &harness{
		srv:       srv,
		cfgPath:   filepath.Join(dir, "config.yaml"),
		tokenFile: filepath.Join(dir, "token.yaml"),
	}
	cfg := fmt.Sprintf(commandsTestConfig, srv.URL, source, h.tokenFile)
	require.NoError(t, ioutil.WriteFile(h.cfgPath, []byte(cfg), 0600))
	return h
}

// run executes a command with the harness config and returns what it printed
// on stdout. Diagnostics end up in h.errOut
func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	h.errOut.Reset()
	app := cli.NewApp()
	app.Name = "rita-threats"
	app.Writer = &out
	app.ErrWriter = &h.errOut
	app.Commands = Commands()

	argv := []string{"rita-threats", args[0], "-c", h.cfgPath}
	argv = append(argv, args[1:]...)
	err := app.Run(argv)
	return out.String(), err
}

func TestShowThreatsCsv(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetGenerated(threat.URL.Endpoint, "http://bad-%03d.example", 120)

	out, err := h.run("show-threats", "url")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 50)
	assert.Equal(t, "http://bad-000.example", lines[0])
	assert.Equal(t, "http://bad-049.example", lines[49])
	assert.Equal(t, "Showing 50 of 120 URL Threats. See more with --reveals.\n", h.errOut.String())

	out, err = h.run("show-threats", "--reveals", "2", "url")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 120)
	assert.Empty(t, h.errOut.String())
}

func TestShowThreatsCsvSmallList(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetValues(threat.Domain.Endpoint, "evil.example", "worse.example")

	out, err := h.run("show-threats", "domain")
	require.NoError(t, err)
	assert.Equal(t, "evil.example\nworse.example\n", out)
	assert.Empty(t, h.errOut.String())
}

func TestShowThreatsHumanWithReveals(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetGenerated(threat.URL.Endpoint, "http://bad-%03d.example", 120)

	out, err := h.run("show-threats", "-H", "--reveals", "1", "url")
	require.NoError(t, err)

	assert.Contains(t, out, "http://bad-099.example")
	assert.NotContains(t, out, "http://bad-100.example")
	assert.Contains(t, out, "Showing 100 of 120 URL Threats. See more with --reveals.")

	out, err = h.run("show-threats", "-H", "--reveals", "2", "url")
	require.NoError(t, err)
	assert.Contains(t, out, "http://bad-119.example")
	assert.NotContains(t, out, "See more")
}

func TestShowThreatsFetchFailure(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.Fail(threat.Hash.Endpoint, http.StatusInternalServerError)

	out, err := h.run("show-threats", "hash")
	require.Error(t, err)
	assert.Equal(t, "Failed to load hash threats.", err.Error())
	assert.Empty(t, out)
}

func TestShowThreatsRequiresKnownEnabledKind(t *testing.T) {
	h := newHarness(t, "static")

	_, err := h.run("show-threats")
	assert.Error(t, err)

	_, err = h.run("show-threats", "email")
	assert.Error(t, err)

	_, err = h.run("show-threats", "ip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestFindThreat(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetGenerated(threat.URL.Endpoint, "http://bad-%03d.example", 120)

	out, err := h.run("find-threat", "url", "  http://bad-010.example  ")
	require.NoError(t, err)
	assert.Equal(t, "Found URL: http://bad-010.example\n", out)

	out, err = h.run("find-threat", "url", "http://bad-075.example")
	require.NoError(t, err)
	assert.Equal(t, "http://bad-075.example not found in the first 50 URL Threats\n", out)

	out, err = h.run("find-threat", "--reveals", "1", "url", "http://bad-075.example")
	require.NoError(t, err)
	assert.Equal(t, "Found URL: http://bad-075.example\n", out)

	out, err = h.run("find-threat", "url", "HTTP://BAD-010.EXAMPLE")
	require.NoError(t, err)
	assert.Contains(t, out, "not found")
}

func TestFindThreatRejectsLateFlags(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetGenerated(threat.URL.Endpoint, "http://bad-%03d.example", 120)

	_, err := h.run("find-threat", "url", "http://bad-075.example", "--reveals", "3")
	require.Error(t, err)
	assert.Equal(t, "Options must come before the kind: --reveals", err.Error())
	assert.Empty(t, h.srv.Requests(threat.URL.Endpoint))

	_, err = h.run("find-threat", "url", "http://bad-075.example", "-r", "1")
	assert.Error(t, err)
}

func TestFindThreatNeedsValue(t *testing.T) {
	h := newHarness(t, "static")

	_, err := h.run("find-threat", "url", "   ")
	require.Error(t, err)
	assert.Equal(t, "Specify a value to search for", err.Error())
}

func TestShowThreatCounts(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetGenerated(threat.URL.Endpoint, "http://bad-%03d.example", 120)
	h.srv.SetValues(threat.Hash.Endpoint, "d41d8cd98f00b204e9800998ecf8427e")
	h.srv.Fail(threat.Domain.CountEndpoint, http.StatusBadGateway)

	out, err := h.run("show-threat-counts")
	require.NoError(t, err)
	assert.Equal(t, "domain,Failed to count domain threats.\nhash,1\nurl,120\n", out)

	out, err = h.run("show-threat-counts", "-H")
	require.NoError(t, err)
	assert.Contains(t, out, "URL Threats")
	assert.Contains(t, out, "120")
}

func TestShowSources(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetSources(
		threat.SourceCount{Source: "urlhaus", Count: 120},
		threat.SourceCount{Source: "malwarebazaar", Count: 7},
	)

	out, err := h.run("show-sources")
	require.NoError(t, err)
	assert.Equal(t, "urlhaus,120\nmalwarebazaar,7\n", out)

	h.srv.Fail("/source_count", http.StatusInternalServerError)
	_, err = h.run("show-sources")
	require.Error(t, err)
	assert.Equal(t, "Failed to load source counts.", err.Error())
}

func TestLoginAndLogout(t *testing.T) {
	h := newHarness(t, "file")
	h.srv.AddUser("analyst", "hunter2", "issued-token")
	h.srv.SetValues(threat.Domain.Endpoint, "evil.example")

	_, err := h.run("show-threats", "domain")
	require.Error(t, err)
	assert.Equal(t, "Failed to load domain threats.", err.Error())

	out, err := h.run("login", "-u", "analyst", "-p", "hunter2")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as analyst")

	tok, err := credentials.File{Path: h.tokenFile}.Load()
	require.NoError(t, err)
	assert.Equal(t, "issued-token", tok.AccessToken)

	out, err = h.run("show-threats", "domain")
	require.NoError(t, err)
	assert.Equal(t, "evil.example\n", out)

	_, err = h.run("logout")
	require.NoError(t, err)
	assert.NoFileExists(t, h.tokenFile)

	_, err = h.run("show-threats", "domain")
	assert.Error(t, err)
}

func TestLoginReadsPassword(t *testing.T) {
	h := newHarness(t, "file")
	h.srv.AddUser("analyst", "hunter2", "issued-token")

	saved := passwordInput
	defer func() { passwordInput = saved }()
	passwordInput = strings.NewReader("hunter2\n")

	_, err := h.run("login", "-u", "analyst")
	require.NoError(t, err)
	assert.FileExists(t, h.tokenFile)
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t, "file")
	h.srv.AddUser("analyst", "hunter2", "issued-token")

	_, err := h.run("login", "-u", "analyst", "-p", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Incorrect username or password", err.Error())
	assert.NoFileExists(t, h.tokenFile)

	_, err = h.run("login", "-p", "hunter2")
	assert.Error(t, err)
}

func TestTestConfig(t *testing.T) {
	h := newHarness(t, "static")

	out, err := h.run("test-config")
	require.NoError(t, err)
	assert.Contains(t, out, "BaseURL: "+h.srv.URL)
	assert.Contains(t, out, "[-] URL Threats: /threat_urls (credential available)")
	assert.NotContains(t, out, "IP Threats")
}

func TestHTMLReport(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetValues(threat.URL.Endpoint, "http://bad.example")

	var opened []string
	saved := openReport
	defer func() { openReport = saved }()
	openReport = func(input string) error {
		opened = append(opened, input)
		return nil
	}

	base := filepath.Join(t.TempDir(), "report")
	out, err := h.run("html-report", "-o", base, "url")
	require.NoError(t, err)
	assert.Contains(t, out, "Report written to "+base)
	assert.Equal(t, []string{filepath.Join(base, "index.html")}, opened)
	assert.FileExists(t, filepath.Join(base, "url.html"))
	assert.NoFileExists(t, filepath.Join(base, "hash.html"))

	_, err = h.run("html-report", "-o", base, "--no-browser")
	require.NoError(t, err)
	assert.Len(t, opened, 1)
	assert.FileExists(t, filepath.Join(base+"1", "hash.html"))
}

func TestShowRecent(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetRecent(
		threat.Record{ID: 7, Type: "URL", Value: "http://bad.example", Source: "urlhaus", Timestamp: "2024-03-01T12:00:00", ListingReason: "phishing"},
		threat.Record{ID: 6, Type: "IP", Value: "203.0.113.9", Source: "misp"},
	)

	out, err := h.run("show-recent")
	require.NoError(t, err)
	assert.Equal(t, "7,URL,http://bad.example,urlhaus,2024-03-01T12:00:00,phishing\n6,IP,203.0.113.9,misp,,\n", out)

	out, err = h.run("show-recent", "-H")
	require.NoError(t, err)
	assert.Contains(t, out, "REASON")
	assert.Contains(t, out, "phishing")

	h.srv.Fail("/threats", http.StatusInternalServerError)
	_, err = h.run("show-recent")
	require.Error(t, err)
	assert.Equal(t, "Failed to load recent threats.", err.Error())
}

func TestGeolocate(t *testing.T) {
	h := newHarness(t, "static")
	h.srv.SetLocation("203.0.113.9", 52.52, 13.405)

	out, err := h.run("geolocate", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9,52.52,13.405\n", out)

	out, err = h.run("geolocate", "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1 location unknown\n", out)

	_, err = h.run("geolocate", "evil.example")
	require.Error(t, err)
	assert.Equal(t, "Specify an IP address to look up", err.Error())
	assert.Empty(t, h.srv.Requests("/geocode/evil.example"))
}

func TestRefreshFeeds(t *testing.T) {
	h := newHarness(t, "static")

	_, err := h.run("refresh-feeds")
	require.Error(t, err)
	assert.Equal(t, "Admins only", err.Error())
	assert.Equal(t, 0, h.srv.Refreshes())

	h.srv.AddAdmin("root", "s3cret", "test-token")
	out, err := h.run("refresh-feeds")
	require.NoError(t, err)
	assert.Equal(t, "Feed refresh triggered\n", out)
	assert.Equal(t, 1, h.srv.Refreshes())
}

func TestAddUser(t *testing.T) {
	h := newHarness(t, "static")

	_, err := h.run("add-user", "-u", "newbie", "-p", "pw")
	require.Error(t, err)
	assert.Equal(t, "Admins only", err.Error())
	assert.False(t, h.srv.HasUser("newbie"))

	h.srv.AddAdmin("root", "s3cret", "test-token")
	out, err := h.run("add-user", "-u", "newbie", "-p", "pw")
	require.NoError(t, err)
	assert.Equal(t, "User created: newbie\n", out)
	assert.True(t, h.srv.HasUser("newbie"))

	_, err = h.run("add-user", "-u", "newbie", "-p", "pw")
	require.Error(t, err)
	assert.Equal(t, "Could not create user: Username exists", err.Error())

	_, err = h.run("add-user", "-u", "other", "-p", "pw", "--role", "root")
	require.Error(t, err)
	assert.False(t, h.srv.HasUser("other"))
}

func TestBrowseReturnsWriteErrors(t *testing.T) {
	srv := intelapitest.NewServer("test-token")
	defer srv.Close()
	srv.SetValues(threat.URL.Endpoint, "http://bad.example")

	list := browseList(t, srv, credentials.Static("test-token"))
	err := browse(context.Background(), list, strings.NewReader("quit\n"), failingWriter{})
	assert.EqualError(t, err, "write failed")
}

// failingWriter rejects every write
type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

func browseList(t *testing.T, srv *intelapitest.Server, creds credentials.Provider) *threatlist.List {
	t.Helper()
	res, _ := resources.InitTestingResources(t, srv.URL)
	kind, err := res.Kind("url")
	require.NoError(t, err)
	return threatlist.New(threatlist.Config{Kind: kind, Credentials: creds}, res.Client, res.Log)
}

func TestBrowse(t *testing.T) {
	srv := intelapitest.NewServer("test-token")
	defer srv.Close()
	srv.SetGenerated(threat.URL.Endpoint, "http://bad-%03d.example", 120)

	list := browseList(t, srv, credentials.Static("test-token"))
	in := strings.NewReader("find http://bad-075.example\nmore\nfind http://bad-075.example\nmore\nmore\nbogus\nquit\n")
	var out bytes.Buffer

	require.NoError(t, browse(context.Background(), list, in, &out))

	text := out.String()
	assert.Contains(t, text, "Showing 50 of 120. Type more to see more.")
	assert.Contains(t, text, "URL not found")
	assert.Contains(t, text, "Showing 100 of 120. Type more to see more.")
	assert.Contains(t, text, "Found URL: http://bad-075.example")
	assert.Contains(t, text, "All 120 URL Threats are shown.")
	assert.Contains(t, text, `Unknown command "bogus"`)
	assert.Len(t, srv.Requests(threat.URL.Endpoint), 1)
}

func TestBrowseReloadsWhenCredentialChanges(t *testing.T) {
	srv := intelapitest.NewServer("test-token")
	defer srv.Close()
	srv.AddUser("analyst", "hunter2", "issued-token")
	srv.SetValues(threat.URL.Endpoint, "http://bad.example")

	store := credentials.File{Path: filepath.Join(t.TempDir(), "token.yaml")}
	list := browseList(t, srv, store)

	// the token appears while the loop is waiting for the next line
	in := &loginOnRead{
		Reader: strings.NewReader("find http://bad.example\nquit\n"),
		login: func() {
			store.Save(credentials.Token{AccessToken: "issued-token", TokenType: "bearer"})
		},
	}
	var out bytes.Buffer
	require.NoError(t, browse(context.Background(), list, in, &out))

	text := out.String()
	assert.True(t, strings.Index(text, "Failed to load URL threats.") < strings.Index(text, "Found URL: http://bad.example"))
	assert.Contains(t, text, "Found URL: http://bad.example")
	assert.Len(t, srv.Requests(threat.URL.Endpoint), 1)
}

func TestBrowseKeepsDataAfterFailedReload(t *testing.T) {
	srv := intelapitest.NewServer("test-token")
	defer srv.Close()
	srv.SetValues(threat.URL.Endpoint, "http://bad.example")

	list := browseList(t, srv, credentials.Static("test-token"))
	in := &failOnRead{
		Reader: strings.NewReader("find http://bad.example\nreload\nfind http://bad.example\nquit\n"),
		fail:   func() { srv.Fail(threat.URL.Endpoint, http.StatusInternalServerError) },
	}
	var out bytes.Buffer
	require.NoError(t, browse(context.Background(), list, in, &out))

	text := out.String()
	assert.Contains(t, text, "Failed to load URL threats.")
	assert.Equal(t, 2, strings.Count(text, "Found URL: http://bad.example"))
}

// loginOnRead runs login before the first read
type loginOnRead struct {
	*strings.Reader
	login func()
	done  bool
}

func (r *loginOnRead) Read(p []byte) (int, error) {
	if !r.done {
		r.login()
		r.done = true
	}
	return r.Reader.Read(p)
}

// failOnRead starts failing the backend on the first read
type failOnRead struct {
	*strings.Reader
	fail func()
	done bool
}

func (r *failOnRead) Read(p []byte) (int, error) {
	if !r.done {
		r.fail()
		r.done = true
	}
	return r.Reader.Read(p)
}
