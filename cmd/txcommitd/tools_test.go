package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

func TestDecodeRequestsAcceptsObjectOrArray(t *testing.T) {
	single, err := decodeRequests([]byte(`{"id":"r1","payloadType":"ADD_KEY","payload":{"k":1}}`))
	require.NoError(t, err)
	require.Len(t, single, 1)
	require.Equal(t, domain.TxAddKey, single[0].PayloadType)

	many, err := decodeRequests([]byte(`
	[{"id":"r1","payloadType":"ADD_KEY"},{"id":"r2","payloadType":"BATCH_ANNOUNCEMENT","streamKey":"s"}]`))
	require.NoError(t, err)
	require.Len(t, many, 2)
	require.Equal(t, "s", many[1].StreamKey)
}

func TestDecodeRequestsRejectsEmptyAndBrokenInput(t *testing.T) {
	_, err := decodeRequests([]byte("  \n"))
	require.Error(t, err)

	_, err = decodeRequests([]byte(`{"id":`))
	require.ErrorContains(t, err, "decode write request")
}

func TestReadInputUsesStdinForDash(t *testing.T) {
	raw, err := readInput(strings.NewReader(`{"id":"x"}`), "-")
	require.NoError(t, err)
	require.Equal(t, `{"id":"x"}`, string(raw))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	require.Subset(t, names, []string{"run", "enqueue", "migrate", "purge"})
}
