package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caveatlab/delegraph/internal/caveat"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv(envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultLogLevel, c.LogLevel)
	assert.Equal(t, DefaultLogFormat, c.LogFormat)
	assert.Equal(t, BaseSepoliaChainID, c.ChainID)
	assert.Equal(t, 1200*time.Millisecond, c.Dwell)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Empty(t, c.Scenario)
	assert.Equal(t, []string{"http://localhost:3000"}, c.CORSOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	c, err := FromEnv(envMap(map[string]string{
		EnvLogLevel:    "debug",
		EnvLogFormat:   "json",
		EnvChainID:     "8453",
		EnvDwell:       "250ms",
		EnvHTTPAddr:    "127.0.0.1:9000",
		EnvScenario:    "  demo.hcl ",
		EnvCORSOrigins: "http://a.test, http://b.test,,",
	}))
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, BaseChainID, c.ChainID)
	assert.Equal(t, 250*time.Millisecond, c.Dwell)
	assert.Equal(t, "127.0.0.1:9000", c.HTTPAddr)
	assert.Equal(t, "demo.hcl", c.Scenario)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.CORSOrigins)
	assert.Equal(t, "Base", c.Chain().Name)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"chain id":       {EnvChainID: "base"},
		"dwell":          {EnvDwell: "soon"},
		"negative dwell": {EnvDwell: "-1s"},
		"zero dwell":     {EnvDwell: "0s"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envMap(env))
			assert.Error(t, err)
		})
	}
}

func TestForChain(t *testing.T) {
	base := ForChain(BaseChainID)
	assert.Equal(t, BaseChainID, base.ID)
	assert.Equal(t, "https://mainnet.base.org", base.RPCURL)
	assert.Equal(t, common.HexToAddress("0xdb9B1e94B5b69Df7e401DDbedE43491141047dB3"), base.DelegationManager)
	assert.Equal(t, common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032"), base.EntryPoint)
	assert.Len(t, base.Enforcers, 4)

	sepolia := ForChain(BaseSepoliaChainID)
	assert.Equal(t, "Base Sepolia", sepolia.Name)
	assert.Equal(t, "https://sepolia.base.org", sepolia.RPCURL)

	unknown := ForChain(1)
	assert.Equal(t, BaseSepoliaChainID, unknown.ID)
	assert.False(t, Known(1))
	assert.True(t, Known(BaseChainID))
}

func TestForChain_EnforcersNotShared(t *testing.T) {
	a := ForChain(BaseChainID)
	delete(a.Enforcers, caveat.KindTimeWindow)
	assert.Len(t, ForChain(BaseChainID).Enforcers, 4)
}

func TestRegisterEnforcers(t *testing.T) {
	reg := caveat.NewRegistry()
	require.NoError(t, ForChain(BaseSepoliaChainID).RegisterEnforcers(reg))

	k, ok := reg.KindOf("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.True(t, ok)
	assert.Equal(t, caveat.KindTimeWindow, k)

	addr, ok := reg.EnforcerFor(caveat.KindNativeTokenLimit)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x1234567890123456789012345678901234567890"), addr)
}
