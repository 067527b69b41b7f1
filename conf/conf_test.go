package conf

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azhovan/strata"
	"github.com/Azhovan/strata/sourceenv"
	"github.com/Azhovan/strata/sourcefile"
	"github.com/Azhovan/strata/sourceprops"
	"github.com/Azhovan/strata/value"
)

func useStore(t *testing.T, files fstest.MapFS, environ []string, props map[string]string) {
	t.Helper()
	SetDefault(strata.NewStore(
		strata.WithResources(sourcefile.FS(files)),
		strata.WithEnvSource(sourceenv.New(sourceenv.Options{
			Environ: func() []string { return environ },
		})),
		strata.WithPropertySource(sourceprops.New(props)),
	))
	t.Cleanup(func() { SetDefault(nil) })
}

func TestGetAll_EndToEnd(t *testing.T) {
	useStore(t, fstest.MapFS{
		"conf/base.edn":    {Data: []byte(`{:port 5000}`)},
		"conf/default.edn": {Data: []byte(`{:database-url "sql://fake/foobar" :log-level :debug}`)},
	}, []string{"DATABASE_URL=sql://dev.fake/foobar"}, nil)

	assert.False(t, IsLoaded())
	assert.Equal(t, value.Map{
		"port":         value.Int(5000),
		"log-level":    value.Keyword("debug"),
		"database-url": value.String("sql://dev.fake/foobar"),
	}, GetAll())
	assert.True(t, IsLoaded())
}

func TestLifecycle(t *testing.T) {
	useStore(t, fstest.MapFS{
		"conf/base.edn": {Data: []byte(`{:port 5000 :alias #conf/ref :port}`)},
	}, nil, map[string]string{"conf.env": "PrOd"})

	require.NoError(t, Load())
	assert.Equal(t, "prod", Default().Environment())

	Set("port", value.Int(6000))
	assert.Equal(t, value.Int(6000), Get("port", nil))
	assert.Equal(t, value.Int(6000), Get("alias", nil))
	assert.Equal(t, value.String("none"), Get("missing", value.String("none")))

	Unload()
	assert.False(t, IsLoaded())
	assert.Equal(t, value.Int(5000), Get("port", nil))
}

func TestDefault_CreatedOnce(t *testing.T) {
	SetDefault(nil)
	t.Cleanup(func() { SetDefault(nil) })

	a := Default()
	b := Default()
	assert.Same(t, a, b)

	SetDefault(nil)
	assert.NotSame(t, a, Default())
}
