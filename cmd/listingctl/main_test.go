package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListingsCommand(t *testing.T) {
	t.Setenv("DATASET_PATH", "")
	t.Setenv("DATASET_DRIVER", "")

	out, err := run(t, "listings")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ID"))
	assert.Contains(t, out, "10 listing(s)")
}

func TestSearchCommand(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"[2, 5]"}}]}`)
	}))
	defer api.Close()

	t.Setenv("DATASET_PATH", "")
	t.Setenv("DATASET_DRIVER", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_BASE", api.URL)

	out, err := run(t, "search", "cheap", "flats")
	require.NoError(t, err)
	assert.Contains(t, out, "2 listing(s)")
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	_, err := run(t, "search")
	assert.Error(t, err)
}
