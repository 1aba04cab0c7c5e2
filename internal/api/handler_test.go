package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zip"

	"github.com/Bellian/Godot-Translation-Tool/internal/config"
	"github.com/Bellian/Godot-Translation-Tool/internal/export"
	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/repo"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	s, err := store.New(context.Background(), config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "api"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)

	h := NewHandler(repo.New(s, model.EntryEager), nil, config.LayoutConfig{Width: 1200, Height: 600, Engine: "fdp", Ticks: 5})
	h.FrameInterval = time.Millisecond
	app := NewApp(log.New(io.Discard), false)
	RegisterRoutes(app, h)
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("encode body: %v", err)
			}
			raw = string(b)
		}
		reader = strings.NewReader(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

// expect asserts the status and decodes the "data" envelope into dst.
func expect(t *testing.T, resp *http.Response, body []byte, status int, dst any) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d: %s", status, resp.StatusCode, body)
	}
	if dst == nil {
		return
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, body)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == nil {
		t.Fatalf("expected an error body, got %s", body)
	}
	return errResp.Error.Code
}

// seed creates project "Game" with languages en and fr and dialog d1.
func seed(t *testing.T, app *fiber.App) (model.Project, model.Dialog) {
	t.Helper()
	var p model.Project
	resp, body := call(t, app, "POST", "/api/projects", map[string]any{"name": "Game"})
	expect(t, resp, body, 201, &p)
	for _, code := range []string{"en", "fr"} {
		var l model.Language
		resp, body = call(t, app, "POST", "/api/languages", map[string]any{"code": code, "name": code})
		expect(t, resp, body, 201, &l)
		resp, body = call(t, app, "POST", "/api/projects/1/languages/"+itoa(l.ID), nil)
		expect(t, resp, body, 200, nil)
	}
	var d model.Dialog
	resp, body = call(t, app, "POST", "/api/projects/1/dialogs", map[string]any{"id": "d1", "name": "Intro"})
	expect(t, resp, body, 201, &d)
	return p, d
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp, body := call(t, app, "GET", "/health", nil)
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", resp.StatusCode, body)
	}
}

func TestErrorMapping(t *testing.T) {
	app := newTestApp(t)
	seed(t, app)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown project", "GET", "/api/projects/99", nil, 404, "NOT_FOUND"},
		{"bad id", "GET", "/api/projects/abc", nil, 400, "BAD_REQUEST"},
		{"duplicate dialog", "POST", "/api/projects/1/dialogs", map[string]any{"id": "d1", "name": "Again"}, 409, "CONFLICT"},
		{"duplicate language", "POST", "/api/languages", map[string]any{"code": "en", "name": "English"}, 409, "CONFLICT"},
		{"missing key", "POST", "/api/projects/1/groups/1/entries", map[string]any{"key": ""}, 422, "VALIDATION_FAILED"},
		{"missing line type", "POST", "/api/projects/1/dialogs/d1/sections/1/lines", map[string]any{}, 422, "VALIDATION_FAILED"},
		{"empty patch", "PATCH", "/api/projects/1", map[string]any{}, 400, "BAD_REQUEST"},
		{"malformed body", "POST", "/api/projects", "{", 400, "BAD_REQUEST"},
		{"unknown dialog", "GET", "/api/projects/1/dialogs/nope", nil, 404, "NOT_FOUND"},
		{"missing language id", "PUT", "/api/projects/1/groups/1/entries/1/translations", map[string]any{"text": "x"}, 422, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := call(t, app, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.StatusCode, body)
			}
			if code := errorCode(t, body); code != tt.code {
				t.Fatalf("expected code %s, got %s", tt.code, code)
			}
		})
	}
}

func TestDialogExportFlow(t *testing.T) {
	app := newTestApp(t)
	_, d := seed(t, app)
	start := itoa(d.Sections[0].ID)

	var line model.DialogLine
	resp, body := call(t, app, "POST", "/api/projects/1/dialogs/d1/sections/"+start+"/lines",
		map[string]any{"type": "dialog", "speaker": "Amy", "textKey": "line_1"})
	expect(t, resp, body, 201, &line)
	resp, body = call(t, app, "POST", "/api/projects/1/dialogs/d1/sections/"+start+"/lines",
		map[string]any{"type": "nextSection", "data": `{"nextSection":"end"}`})
	expect(t, resp, body, 201, nil)
	resp, body = call(t, app, "POST", "/api/projects/1/dialogs/d1/sections", map[string]any{"sectionId": "end"})
	expect(t, resp, body, 201, nil)

	var res repo.LineTextResult
	resp, body = call(t, app, "PUT", "/api/projects/1/dialogs/d1/lines/"+itoa(line.ID)+"/text",
		map[string]any{"languageId": 1, "text": "Hello"})
	expect(t, resp, body, 200, &res)
	if !res.Created || res.Key != "line_1" {
		t.Fatalf("unexpected text result %+v", res)
	}

	resp, body = call(t, app, "GET", "/api/projects/1/dialogs/d1/export", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("export failed: %d %s", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="d1.json"`) {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	want := `{
  "startSection": "start",
  "sections": [
    {
      "id": "start",
      "lines": [
        {
          "type": "dialog",
          "speaker": "Amy",
          "text": "` + export.BuildExportedKey("Game", "Dialog_d1", "line_1") + `"
        },
        {
          "type": "nextSection",
          "nextSection": "end"
        }
      ]
    },
    {
      "id": "end",
      "lines": []
    }
  ]
}`
	if string(body) != want {
		t.Fatalf("export mismatch\nexpected:\n%s\ngot:\n%s", want, body)
	}

	resp, body = call(t, app, "POST", "/api/projects/1/dialogs/d1/import", string(body))
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"unresolved":[]`) {
		t.Fatalf("import failed: %d %s", resp.StatusCode, body)
	}
}

func TestProjectZip(t *testing.T) {
	app := newTestApp(t)
	resp, body := call(t, app, "POST", "/api/projects", map[string]any{"name": "Empty"})
	expect(t, resp, body, 201, nil)
	resp, body = call(t, app, "GET", "/api/projects/1/dialogs/export.zip", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for a project without dialogs, got %d %s", resp.StatusCode, body)
	}

	resp, body = call(t, app, "POST", "/api/projects/1/dialogs", map[string]any{"id": "a", "name": "A"})
	expect(t, resp, body, 201, nil)
	resp, body = call(t, app, "POST", "/api/projects/1/dialogs", map[string]any{"id": "b", "name": "B"})
	expect(t, resp, body, 201, nil)

	resp, body = call(t, app, "GET", "/api/projects/1/dialogs/export.zip", nil)
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "application/zip" {
		t.Fatalf("unexpected zip response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Empty_dialogs_") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "a.json" || zr.File[1].Name != "b.json" {
		t.Fatalf("unexpected members %v", zr.File)
	}
}

func TestProjectCSV(t *testing.T) {
	app := newTestApp(t)
	seed(t, app)

	var g model.TranslationGroup
	resp, body := call(t, app, "POST", "/api/projects/1/groups", map[string]any{"name": "UI"})
	expect(t, resp, body, 201, &g)
	var e model.TranslationEntry
	resp, body = call(t, app, "POST", "/api/projects/1/groups/"+itoa(g.ID)+"/entries", map[string]any{"key": "hello"})
	expect(t, resp, body, 201, &e)
	path := "/api/projects/1/groups/" + itoa(g.ID) + "/entries/" + itoa(e.ID) + "/translations"
	resp, body = call(t, app, "PUT", path, map[string]any{"languageId": 1, "text": "Hi"})
	expect(t, resp, body, 200, nil)
	resp, body = call(t, app, "PUT", path, map[string]any{"languageId": 2, "text": "  "})
	expect(t, resp, body, 200, nil)

	resp, body = call(t, app, "GET", "/api/projects/1/export.csv", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("csv export failed: %d %s", resp.StatusCode, body)
	}
	want := "keys,en,fr\n" + export.BuildExportedKey("Game", "UI", "hello") + ",Hi,"
	if string(body) != want {
		t.Fatalf("csv mismatch\nexpected %q\ngot      %q", want, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="Game.csv"`) {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}

	var groups []repo.GroupSummary
	resp, body = call(t, app, "GET", "/api/projects/1/groups", nil)
	expect(t, resp, body, 200, &groups)
	for _, s := range groups {
		if s.Name == "UI" && !s.HasUntranslated {
			t.Fatal("UI lacks a French translation and should be flagged")
		}
	}
}

func TestGraphEndpoints(t *testing.T) {
	app := newTestApp(t)
	_, d := seed(t, app)
	start := itoa(d.Sections[0].ID)
	resp, body := call(t, app, "POST", "/api/projects/1/dialogs/d1/sections", map[string]any{"sectionId": "end"})
	expect(t, resp, body, 201, nil)
	resp, body = call(t, app, "POST", "/api/projects/1/dialogs/d1/sections/"+start+"/lines",
		map[string]any{"type": "nextSection", "data": `{"nextSection":"end"}`})
	expect(t, resp, body, 201, nil)

	var l struct {
		Ticks int `json:"ticks"`
		Nodes []struct {
			ID      string `json:"id"`
			IsStart bool   `json:"isStart"`
		} `json:"nodes"`
		Links []struct {
			Source string `json:"source"`
			Target string `json:"target"`
			Path   string `json:"path"`
		} `json:"links"`
	}
	resp, body = call(t, app, "GET", "/api/projects/1/dialogs/d1/graph", nil)
	expect(t, resp, body, 200, &l)
	if len(l.Nodes) != 2 || !l.Nodes[0].IsStart || len(l.Links) != 1 || l.Links[0].Target != "end" {
		t.Fatalf("unexpected graph %+v", l)
	}
	if l.Ticks != 5 || !strings.HasPrefix(l.Links[0].Path, "M") {
		t.Fatalf("unexpected layout ticks %d path %q", l.Ticks, l.Links[0].Path)
	}

	resp, body = call(t, app, "GET", "/api/projects/1/dialogs/d1/graph/stream", nil)
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Fatalf("unexpected stream response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if n := strings.Count(string(body), "event: frame"); n != 5 {
		t.Fatalf("expected 5 frames, got %d:\n%s", n, body)
	}
	if !strings.Contains(string(body), `"done":true`) {
		t.Fatal("last frame should be marked done")
	}

	resp, body = call(t, app, "GET", "/api/projects/1/dialogs/d1/graph.svg?engine=dot", nil)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for an unsupported engine, got %d %s", resp.StatusCode, body)
	}
}

func TestLintEndpoint(t *testing.T) {
	app := newTestApp(t)
	_, d := seed(t, app)
	start := itoa(d.Sections[0].ID)
	resp, body := call(t, app, "POST", "/api/projects/1/dialogs/d1/sections/"+start+"/lines",
		map[string]any{"type": "nextSection", "data": `{"nextSection":"nowhere"}`})
	expect(t, resp, body, 201, nil)

	resp, body = call(t, app, "GET", "/api/projects/1/dialogs/d1/lint", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("lint failed: %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"dangling_target"`) {
		t.Fatalf("expected a dangling_target finding, got %s", body)
	}
}

func TestSectionsAndLines(t *testing.T) {
	app := newTestApp(t)
	_, d := seed(t, app)
	start := itoa(d.Sections[0].ID)
	base := "/api/projects/1/dialogs/d1"

	var a, b model.DialogLine
	resp, body := call(t, app, "POST", base+"/sections/"+start+"/lines", map[string]any{"type": "event", "eventName": "a"})
	expect(t, resp, body, 201, &a)
	resp, body = call(t, app, "POST", base+"/sections/"+start+"/lines", map[string]any{"type": "event", "eventName": "b"})
	expect(t, resp, body, 201, &b)

	var s model.DialogSection
	resp, body = call(t, app, "PATCH", base+"/sections/"+start+"/lines/reorder", map[string]any{"lineIds": []int64{b.ID, a.ID}})
	expect(t, resp, body, 200, &s)
	if s.Lines[0].ID != b.ID {
		t.Fatalf("expected b first, got %+v", s.Lines)
	}

	resp, body = call(t, app, "PATCH", base+"/lines/"+itoa(a.ID), map[string]any{"eventValue": "42"})
	var patched model.DialogLine
	expect(t, resp, body, 200, &patched)
	if patched.EventName != "a" || patched.EventValue != "42" {
		t.Fatalf("partial update lost fields: %+v", patched)
	}

	resp, body = call(t, app, "DELETE", base+"/lines/"+itoa(a.ID), nil)
	expect(t, resp, body, 204, nil)
	resp, body = call(t, app, "DELETE", base+"/lines/"+itoa(a.ID), nil)
	expect(t, resp, body, 404, nil)

	resp, body = call(t, app, "POST", base+"/sections", map[string]any{"sectionId": "start"})
	expect(t, resp, body, 409, nil)

	var ids []string
	resp, body = call(t, app, "GET", "/api/projects/1/dialog-sections", nil)
	expect(t, resp, body, 200, &ids)
	if strings.Join(ids, ",") != "start" {
		t.Fatalf("unexpected section ids %v", ids)
	}
}
