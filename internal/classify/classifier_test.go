package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitorlens/lens-cli/internal/model"
)

func TestClassifyTiers(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		relPath  string
		fileName string
		feature  string
		method   model.ClassMethod
	}{
		{
			name:     "folder equals feature name",
			relPath:  "BTCTurk/Convert/swap.png",
			fileName: "swap.png",
			feature:  "Convert",
			method:   model.MatchFolderExact,
		},
		{
			name:     "onboarding folder maps to bank signup",
			relPath:  "BTCTurk/Onboarding Screens/step1.png",
			fileName: "step1.png",
			feature:  "Sign up with Bank",
			method:   model.MatchFolderPartial,
		},
		{
			name:     "keyword only in file name",
			relPath:  "Paribu/misc/login-light.png",
			fileName: "login-light.png",
			feature:  "Sign in with Bank",
			method:   model.MatchFilenameKeyword,
		},
		{
			name:     "nothing matches",
			relPath:  "Paribu/random/mystery-screen.png",
			fileName: "mystery-screen.png",
			method:   model.MatchNone,
		},
		{
			name:     "competitor folder is never a feature candidate",
			relPath:  "Convert/mystery-screen.png",
			fileName: "mystery-screen.png",
			method:   model.MatchNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := c.Classify(tt.relPath, tt.fileName)
			assert.Equal(t, tt.feature, g.Feature)
			assert.Equal(t, tt.method, g.Method)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New()
	first := c.Classify("BTCTurk/Staking/locked-staking.png", "locked-staking.png")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("BTCTurk/Staking/locked-staking.png", "locked-staking.png"))
	}
}

func TestClassifyTieBreaksByDeclarationOrder(t *testing.T) {
	c := New()
	// "locked staking" matches both the Locked Staking and the Flexible
	// Staking keyword sets; the earlier table entry wins.
	g := c.Classify("BTCTurk/Locked Staking/detail.png", "detail.png")
	assert.Equal(t, "Locked Staking", g.Feature)
}

func TestClassifyNormalizesTurkishText(t *testing.T) {
	c := New()
	g := c.Classify("BTCTurk/TRY Nemalandırma/rate.png", "rate.png")
	assert.Equal(t, "TRY Nemalandırma", g.Feature)
	assert.Equal(t, model.MatchFolderExact, g.Method)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTCTurk", "btcturk"},
		{"Sign-Up_Flow", "sign up flow"},
		{"TRY Nemalandırma", "try nemalandirma"},
		{"  spaced   out  ", "spaced out"},
		{"Garanti Kripto", "garanti kripto"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.yaml")
	content := []byte("- feature: Convert\n  category: Trading\n  keywords: [convert, swap]\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "Convert", table[0].Feature)
	assert.Equal(t, []string{"convert", "swap"}, table[0].Keywords)

	c := NewWithTable(table)
	g := c.Classify("Paribu/Swap/convert.png", "convert.png")
	assert.Equal(t, "Convert", g.Feature)

	_, err = LoadTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0o644))
	_, err = LoadTable(empty)
	assert.Error(t, err)
}
