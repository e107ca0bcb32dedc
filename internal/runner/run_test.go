package runner

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/infracollect/tmpcollect/internal/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		field   string
	}{
		{
			name: "base dir only",
			cfg:  Config{BaseDir: "."},
		},
		{
			name:    "missing base dir",
			cfg:     Config{},
			wantErr: true,
			field:   "Config.BaseDir",
		},
		{
			name: "s3 mirror",
			cfg:  Config{BaseDir: ".", S3: &S3Config{Bucket: "drops", Endpoint: "http://localhost:9000"}},
		},
		{
			name:    "s3 mirror without bucket",
			cfg:     Config{BaseDir: ".", S3: &S3Config{Prefix: "batches"}},
			wantErr: true,
			field:   "Config.S3.Bucket",
		},
		{
			name: "s3 static credentials",
			cfg:  Config{BaseDir: ".", S3: &S3Config{Bucket: "drops", AccessKeyID: "AKID", SecretAccessKey: "SECRET"}},
		},
		{
			name:    "s3 access key without secret",
			cfg:     Config{BaseDir: ".", S3: &S3Config{Bucket: "drops", AccessKeyID: "AKID"}},
			wantErr: true,
			field:   "Config.S3.SecretAccessKey",
		},
		{
			name:    "s3 secret without access key",
			cfg:     Config{BaseDir: ".", S3: &S3Config{Bucket: "drops", SecretAccessKey: "SECRET"}},
			wantErr: true,
			field:   "Config.S3.AccessKeyID",
		},
		{
			name:    "s3 endpoint is not a url",
			cfg:     Config{BaseDir: ".", S3: &S3Config{Bucket: "drops", Endpoint: "not a url"}},
			wantErr: true,
			field:   "Config.S3.Endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var validationErrs validator.ValidationErrors
			require.ErrorAs(t, err, &validationErrs)
			require.Len(t, validationErrs, 1)
			assert.Equal(t, tt.field, validationErrs[0].Namespace())
		})
	}
}

func TestBuildSinks(t *testing.T) {
	t.Run("no mirrors", func(t *testing.T) {
		result, err := buildSinks(t.Context(), Config{BaseDir: "."})
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("filesystem and s3 mirrors", func(t *testing.T) {
		mirror := filepath.Join(t.TempDir(), "mirror")
		result, err := buildSinks(t.Context(), Config{
			BaseDir:   ".",
			MirrorDir: mirror,
			S3:        &S3Config{Bucket: "drops", Prefix: "batches", Region: "us-east-1"},
		})
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "filesystem", result[0].Kind())
		assert.Equal(t, "s3", result[1].Kind())
		assert.Equal(t, "s3(drops/batches)", result[1].Name())
		assert.DirExists(t, mirror)
	})

	t.Run("s3 mirror with static credentials", func(t *testing.T) {
		result, err := buildSinks(t.Context(), Config{
			BaseDir: ".",
			S3: &S3Config{
				Bucket:          "drops",
				Region:          "us-east-1",
				Endpoint:        "http://localhost:9000",
				ForcePathStyle:  true,
				AccessKeyID:     "AKID",
				SecretAccessKey: "SECRET",
			},
		})
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "s3(drops)", result[0].Name())
	})
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(t.Context(), zap.NewNop(), Config{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestRunner_Run(t *testing.T) {
	base := filepath.Join(t.TempDir(), "base")
	mirror := filepath.Join(t.TempDir(), "mirror")
	var out bytes.Buffer

	r, err := New(t.Context(), zap.NewNop(), Config{BaseDir: base, MirrorDir: mirror, Out: &out})
	require.NoError(t, err)

	// The tmp directory is created by Run, so seed it up front.
	tmp := filepath.Join(base, collector.TmpDirName)
	require.NoError(t, os.MkdirAll(tmp, 0755))
	for i := range collector.Threshold {
		require.NoError(t, os.WriteFile(filepath.Join(tmp, fmt.Sprintf("drop-%02d.log", i)), []byte("line"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".partial"), []byte("in progress"), 0644))

	require.NoError(t, r.Run(t.Context()))

	assert.Equal(t, "files collected\n", out.String())
	assert.Equal(t, collector.StateDone, r.Collector().State())
	assert.FileExists(t, filepath.Join(base, collector.LiveArchiveName))
	assert.FileExists(t, filepath.Join(tmp, ".partial"))

	mirrored, err := os.ReadDir(mirror)
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
	assert.Regexp(t, `^files_\d{8}_\d{6}\.tar\.gz$`, mirrored[0].Name())
}

func TestRunner_RunInitializeFailure(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, collector.TmpDirName), nil, 0644))

	r, err := New(t.Context(), zap.NewNop(), Config{BaseDir: base})
	require.NoError(t, err)

	err = r.Run(t.Context())
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to initialize collector")

	var fsErr *collector.FilesystemError
	assert.ErrorAs(t, err, &fsErr)
}
