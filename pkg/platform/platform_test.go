package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogOrderIsStable(t *testing.T) {
	names := make([]string, 0, len(Catalog))
	for _, p := range Catalog {
		names = append(names, p.OSName)
	}
	require.Equal(t, []string{
		"amzn1",
		"amzn2",
		"el7",
		"ubuntu-xenial",
		"ubuntu-bionic",
		"ubuntu-cosmic",
		"ubuntu-disco",
	}, names)
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("el7")
	require.True(t, ok)
	require.Equal(t, "centos:7", p.SourceImage)
	require.Equal(t, RPM, p.Kind)

	_, ok = Lookup("slackware")
	require.False(t, ok)
}

func TestDockerfileTemplate(t *testing.T) {
	p, ok := Lookup("ubuntu-bionic")
	require.True(t, ok)
	require.Equal(t, "ubuntu-bionic.dockerfile", p.DockerfileTemplate())
	require.Equal(t, "amd64", p.Arch)
	require.Equal(t, DEB, p.Kind)
}
