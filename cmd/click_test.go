// File: cmd/click_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/puppetcore/internal/engine"
)

const clickFixture = `<html><body>
	<main id="chat">
		<button id="new">New chat</button>
		<input name="title" id="t1"><input name="title" id="t2">
		<ul><li class="item">first</li><li class="item">second</li></ul>
		<label><input type="checkbox" id="archive"> Archive all</label>
		<span data-action="rename" id="rn">Rename</span>
	</main>
</body></html>`

func TestClickCommands(t *testing.T) {
	resetForTest(t)
	page := writeHTML(t, clickFixture)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"text", []string{"click", "text", "NEW   chat"}, `clicked <BUTTON> "New chat" at html>body>main#chat>button#new via native click`},
		{"attr by name", []string{"click", "attr", "title"}, "at html>body>main#chat>input#t1"},
		{"attr custom", []string{"click", "attr", "--attr", "data-action", "rename"}, "at html>body>main#chat>span#rn"},
		{"nth", []string{"click", "nth", "li.item", "2"}, `<LI> "second"`},
		{"name", []string{"click", "name", "title", "2"}, "at html>body>main#chat>input#t2"},
		{"checkbox", []string{"click", "checkbox", "archive all"}, "at html>body>main#chat>label>input#archive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, append(tt.args, "--html", page)...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestClickCommand_Errors(t *testing.T) {
	resetForTest(t)
	page := writeHTML(t, clickFixture)

	t.Run("not found", func(t *testing.T) {
		_, err := executeCommand(t, "click", "text", "missing", "--html", page, "--timeout", "50ms")
		assert.ErrorIs(t, err, engine.ErrElementNotFound)
	})

	t.Run("checkbox not found", func(t *testing.T) {
		terms := writeHTML(t, `<html><body><p>Terms apply</p></body></html>`)
		_, err := executeCommand(t, "click", "checkbox", "terms", "--html", terms, "--timeout", "50ms")
		assert.ErrorIs(t, err, engine.ErrCheckboxNotFound)
	})

	t.Run("bad index", func(t *testing.T) {
		_, err := executeCommand(t, "click", "nth", "li", "two", "--html", page)
		assert.ErrorContains(t, err, "invalid index")
	})

	t.Run("no target", func(t *testing.T) {
		_, err := executeCommand(t, "click", "text", "x")
		assert.ErrorContains(t, err, "either --url or --html is required")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := executeCommand(t, "click", "text", "x", "--html", page+".missing")
		assert.ErrorContains(t, err, "failed to open")
	})
}

func TestClickCommand_TypeAndPress(t *testing.T) {
	resetForTest(t)
	page := writeHTML(t, clickFixture)

	out, err := executeCommand(t, "click", "attr", "title", "--html", page, "--type", "Weekly sync", "--press", "Enter")
	require.NoError(t, err)
	assert.Contains(t, out, "input#t1")
}

func TestClickCommand_TimeoutShorterThanPollInterval(t *testing.T) {
	resetForTest(t)
	// Fall back to the stock 100ms poll interval.
	t.Setenv("PUPPET_ENGINE_POLL_INTERVAL", "")
	page := writeHTML(t, clickFixture)

	t.Run("missing element times out", func(t *testing.T) {
		_, err := executeCommand(t, "click", "text", "missing", "--html", page, "--timeout", "50ms")
		assert.ErrorIs(t, err, engine.ErrElementNotFound)
	})

	t.Run("present element is clicked", func(t *testing.T) {
		out, err := executeCommand(t, "click", "text", "new chat", "--html", page, "--timeout", "50ms")
		require.NoError(t, err)
		assert.Contains(t, out, "button#new")
	})

	t.Run("poll interval flag", func(t *testing.T) {
		_, err := executeCommand(t, "click", "text", "missing", "--html", page, "--timeout", "50ms", "--poll-interval", "1s")
		assert.ErrorIs(t, err, engine.ErrElementNotFound)
	})
}
