package validation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid lowercase", "0x5fbdb2315678afecb367f032d93f642f64180aa3", false},
		{"valid checksum", "0x5FbDB2315678afecb367f032d93F642f64180aa3", false},
		{"zero address", "0x0000000000000000000000000000000000000000", false},
		{"too short", "0x5fbdb2315678afecb367f032d93f642f64180a", true},
		{"missing prefix", "005fbdb2315678afecb367f032d93f642f64180aa3", true},
		{"non hex", "0x5fbdb2315678afecb367f032d93f642f64180aZ3", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseNonZeroAddress(t *testing.T) {
	_, err := ParseNonZeroAddress("0x0000000000000000000000000000000000000000")
	assert.Error(t, err)

	a, err := ParseNonZeroAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	require.NoError(t, err)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", a.Hex())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"zero", "0", "0", false},
		{"fixture", "20000", "20000", false},
		{"eighteen decimals", "1000000000000000000000000", "1000000000000000000000000", false},
		{"max uint256", "115792089237316195423570985008687907853269984665640564039457584007913129639935", "115792089237316195423570985008687907853269984665640564039457584007913129639935", false},
		{"overflow", "115792089237316195423570985008687907853269984665640564039457584007913129639936", "", true},
		{"negative", "-1", "", true},
		{"decimal point", "1.5", "", true},
		{"hex", "0x10", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	assert.Error(t, ValidateAmount(nil))
	assert.Error(t, ValidateAmount(big.NewInt(-5)))
}

func TestValidateTokenMetadata(t *testing.T) {
	assert.NoError(t, ValidateTokenSymbol("ELK"))
	assert.Error(t, ValidateTokenSymbol("elk"))
	assert.Error(t, ValidateTokenSymbol(""))
	assert.Error(t, ValidateTokenSymbol("ABCDEFGHIJKL"))

	assert.NoError(t, ValidateTokenName("Elk"))
	assert.Error(t, ValidateTokenName("  "))
}

func TestValidateChainID(t *testing.T) {
	assert.NoError(t, ValidateChainID(31337))
	assert.Error(t, ValidateChainID(0))
	assert.Error(t, ValidateChainID(-1))
}

func TestCompatibleVersions(t *testing.T) {
	tests := []struct {
		client, server string
		want           bool
	}{
		{"1.2.0", "1.0.3", true},
		{"v1.2.0", "1.9.0", true},
		{"2.0.0", "1.9.0", false},
		{"dev", "1.0.0", true},
		{"1.0.0", "dev", true},
	}
	for _, tt := range tests {
		t.Run(tt.client+"/"+tt.server, func(t *testing.T) {
			assert.Equal(t, tt.want, CompatibleVersions(tt.client, tt.server))
		})
	}
}
