package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmatch/backend/internal/domain"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

const fixture = `vendor,solution_name
Red Hat,OpenShift
Red Hat,Ansible Automation Platform
Atlassian,Jira Software
Atlassian,Confluence
Adobe,Photoshop
Adobe,Photoshop
GitLab,GitLab Ultimate
`

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load(writeCSV(t, fixture))
	require.NoError(t, err)
	return cat
}

func TestLoad(t *testing.T) {
	t.Run("loads csv catalog", func(t *testing.T) {
		cat := loadFixture(t)
		assert.Equal(t, []string{"Adobe", "Atlassian", "GitLab", "Red Hat"}, cat.Vendors())
	})

	t.Run("keeps duplicate rows", func(t *testing.T) {
		cat := loadFixture(t)
		solutions, err := cat.SolutionsFor("Adobe")
		require.NoError(t, err)
		assert.Equal(t, []string{"Photoshop", "Photoshop"}, solutions)
	})

	t.Run("accepts solution column alias", func(t *testing.T) {
		cat, err := Load(writeCSV(t, "vendor,solution\nRed Hat,OpenShift\n"))
		require.NoError(t, err)
		assert.True(t, cat.Has("Red Hat", "OpenShift"))
	})

	t.Run("missing columns is a fatal error", func(t *testing.T) {
		_, err := Load(writeCSV(t, "name,product\nRed Hat,OpenShift\n"))
		assert.Error(t, err)
	})

	t.Run("empty file is a fatal error", func(t *testing.T) {
		_, err := Load(writeCSV(t, ""))
		assert.Error(t, err)
	})

	t.Run("unsupported extension is rejected", func(t *testing.T) {
		_, err := Load("catalog.json")
		assert.Error(t, err)
	})
}

func TestSolutionsFor(t *testing.T) {
	cat := loadFixture(t)

	t.Run("lookup is case-insensitive with canonical casing preserved", func(t *testing.T) {
		solutions, err := cat.SolutionsFor("red hat")
		require.NoError(t, err)
		assert.Equal(t, []string{"OpenShift", "Ansible Automation Platform"}, solutions)
	})

	t.Run("unknown vendor returns ErrVendorNotFound", func(t *testing.T) {
		_, err := cat.SolutionsFor("Oracle")
		assert.True(t, errors.Is(err, domain.ErrVendorNotFound))
	})
}

func TestResolveVendor(t *testing.T) {
	cat := loadFixture(t)

	t.Run("exact match scores 100", func(t *testing.T) {
		vendor, score := cat.ResolveVendor("Red Hat", 50)
		assert.Equal(t, "Red Hat", vendor)
		assert.Equal(t, 100.0, score)
	})

	t.Run("case-insensitive exact match returns canonical casing", func(t *testing.T) {
		vendor, score := cat.ResolveVendor("RED HAT", 50)
		assert.Equal(t, "Red Hat", vendor)
		assert.Equal(t, 100.0, score)
	})

	t.Run("fuzzy input resolves to closest vendor", func(t *testing.T) {
		vendor, score := cat.ResolveVendor("redhat", 50)
		assert.Equal(t, "Red Hat", vendor)
		assert.GreaterOrEqual(t, score, 50.0)
	})

	t.Run("noise suffix still resolves", func(t *testing.T) {
		vendor, _ := cat.ResolveVendor("Adobe Inc", 50)
		assert.Equal(t, "Adobe", vendor)
	})

	t.Run("unrelated input is returned unchanged with zero score", func(t *testing.T) {
		vendor, score := cat.ResolveVendor("Zzyzx Quantum", 50)
		assert.Equal(t, "Zzyzx Quantum", vendor)
		assert.Equal(t, 0.0, score)
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		vendor, score := cat.ResolveVendor("", 50)
		assert.Equal(t, "", vendor)
		assert.Equal(t, 0.0, score)
	})
}

func TestResolveSolution(t *testing.T) {
	cat := loadFixture(t)

	t.Run("exact match scores 100", func(t *testing.T) {
		solution, score := cat.ResolveSolution("Atlassian", "Jira Software", 50)
		assert.Equal(t, "Jira Software", solution)
		assert.Equal(t, 100.0, score)
	})

	t.Run("fuzzy input resolves within the vendor", func(t *testing.T) {
		solution, score := cat.ResolveSolution("Atlassian", "jira", 50)
		assert.Equal(t, "Jira Software", solution)
		assert.GreaterOrEqual(t, score, 50.0)
	})

	t.Run("unknown vendor leaves input unchanged", func(t *testing.T) {
		solution, score := cat.ResolveSolution("Oracle", "Database", 50)
		assert.Equal(t, "Database", solution)
		assert.Equal(t, 0.0, score)
	})
}

func TestHas(t *testing.T) {
	cat := loadFixture(t)

	assert.True(t, cat.Has("Atlassian", ""))
	assert.True(t, cat.Has("atlassian", "jira software"))
	assert.False(t, cat.Has("Atlassian", "Bitbucket"))
	assert.False(t, cat.Has("Oracle", ""))
}
