package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArtifactRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ArtifactRef
		wantErr bool
	}{
		{
			name:  "bare name resolves latest",
			input: "sample.csv",
			want:  ArtifactRef{Name: "sample.csv", Alias: AliasLatest},
		},
		{
			name:  "explicit latest",
			input: "sample.csv:latest",
			want:  ArtifactRef{Name: "sample.csv", Alias: AliasLatest},
		},
		{
			name:  "exact version",
			input: "clean_sample.csv:v12",
			want:  ArtifactRef{Name: "clean_sample.csv", Version: 12},
		},
		{
			name:  "surrounding whitespace",
			input: "  sample.csv:v0 ",
			want:  ArtifactRef{Name: "sample.csv", Version: 0},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "empty name", input: ":v1", wantErr: true},
		{name: "unknown alias", input: "sample.csv:prod", wantErr: true},
		{name: "negative version", input: "sample.csv:v-1", wantErr: true},
		{name: "non numeric version", input: "sample.csv:vx", wantErr: true},
		{name: "path separator", input: "data/sample.csv:v0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArtifactRef(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrArtifactNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArtifactRef_String(t *testing.T) {
	assert.Equal(t, "sample.csv:latest", ArtifactRef{Name: "sample.csv", Alias: AliasLatest}.String())
	assert.Equal(t, "sample.csv:v3", ArtifactRef{Name: "sample.csv", Version: 3}.String())
}

func TestArtifactVersion_Ref(t *testing.T) {
	v := &ArtifactVersion{Name: "clean_sample.csv", Version: 0}
	assert.Equal(t, "clean_sample.csv:v0", v.Ref())

	ref, err := ParseArtifactRef(v.Ref())
	require.NoError(t, err)
	assert.Equal(t, "clean_sample.csv", ref.Name)
	assert.Equal(t, 0, ref.Version)
	assert.False(t, ref.IsLatest())
}

func TestValidateArtifactName(t *testing.T) {
	assert.NoError(t, ValidateArtifactName("clean_sample.csv"))
	assert.NoError(t, ValidateArtifactName("raw-data_2024.v1"))
	assert.Error(t, ValidateArtifactName(""))
	assert.Error(t, ValidateArtifactName(".hidden"))
	assert.Error(t, ValidateArtifactName("a b"))
}
