package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/animaisueg/pledge-service/internal/client"
)

func TestFormatStatus(t *testing.T) {
	require.Equal(t, "payment=42 gateway=approved pledge=approved",
		formatStatus(client.Status{PaymentID: "42", Status: "approved", PledgeStatus: "approved"}))
	require.Equal(t, "payment=7 gateway=in_process pledge=unknown",
		formatStatus(client.Status{PaymentID: "7", Status: "in_process"}))
}

func TestEnvOr(t *testing.T) {
	t.Setenv("PLEDGECTL_TEST_URL", "")
	require.Equal(t, "fallback", envOr("PLEDGECTL_TEST_URL", "fallback"))
	t.Setenv("PLEDGECTL_TEST_URL", "http://example")
	require.Equal(t, "http://example", envOr("PLEDGECTL_TEST_URL", "fallback"))
}
