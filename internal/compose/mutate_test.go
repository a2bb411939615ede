package compose

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustLoad parses a YAML fixture, failing the test on error.
func mustLoad(t *testing.T, src string) Document {
	t.Helper()
	doc, err := Load([]byte(src))
	require.NoError(t, err)
	return doc
}

// serviceField returns services.<service>.<field> as decoded.
func serviceField(t *testing.T, doc Document, service, field string) interface{} {
	t.Helper()
	services, err := doc.servicesMap(false)
	require.NoError(t, err)
	spec, ok := asMapping(services[service])
	require.True(t, ok, "service %q is not a mapping", service)
	return spec[field]
}

// fieldStrings parses services.<service>.<field> and returns its entries.
func fieldStrings(t *testing.T, doc Document, service, field, sep string) []string {
	t.Helper()
	services, err := doc.servicesMap(false)
	require.NoError(t, err)
	spec, ok := asMapping(services[service])
	require.True(t, ok)
	list, err := entries(service, spec, field, sep)
	require.NoError(t, err)
	return list.Strings()
}

// --- AddReverseProxyService ---

func TestAddReverseProxyService_InsertsService(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    image: nginx
`)
	proxy := DefaultProxy().WithCertificates("/data/ssl/a.local")

	out := AddReverseProxyService(doc, proxy)

	assert.True(t, out.HasService(ReverseProxyService))
	assert.True(t, out.HasService("web"))
	assert.Equal(t, "jwilder/nginx-proxy", serviceField(t, out, ReverseProxyService, "image"))
	assert.Equal(t, []interface{}{
		"/var/run/docker.sock:/tmp/docker.sock:ro",
		"/data/ssl/a.local:/etc/nginx/certs",
	}, serviceField(t, out, ReverseProxyService, "volumes"))

	// The input is left alone.
	assert.False(t, doc.HasService(ReverseProxyService))
}

func TestAddReverseProxyService_Idempotent(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    image: nginx
`)
	proxy := DefaultProxy()

	once := AddReverseProxyService(doc, proxy)
	twice := AddReverseProxyService(once, proxy)

	assert.Equal(t, once, twice)
}

// TestAddReverseProxyService_IdempotentAfterRoundTrip verifies that a proxy
// written to disk and read back is still recognized as the same definition.
func TestAddReverseProxyService_IdempotentAfterRoundTrip(t *testing.T) {
	proxy := DefaultProxy().WithCertificates("/certs")
	once := AddReverseProxyService(Document{}, proxy)

	data, err := Marshal(once)
	require.NoError(t, err)
	reloaded := mustLoad(t, string(data))

	again := AddReverseProxyService(reloaded, proxy)
	assert.Equal(t, reloaded, again)
}

func TestAddReverseProxyService_ReplacesDifferentProxy(t *testing.T) {
	doc := AddReverseProxyService(Document{}, DefaultProxy().WithCertificates("/old"))

	out := AddReverseProxyService(doc, DefaultProxy().WithCertificates("/new"))

	volumes := serviceField(t, out, ReverseProxyService, "volumes")
	assert.Contains(t, volumes, "/new:/etc/nginx/certs")
	assert.NotContains(t, volumes, "/old:/etc/nginx/certs")
}

// A services field that is not a mapping is kept as written; the proxy is
// not merged into it.
func TestAddReverseProxyService_KeepsNonMappingServices(t *testing.T) {
	doc := Document{"services": []interface{}{"a"}}

	out := AddReverseProxyService(doc, DefaultProxy())

	assert.Equal(t, []interface{}{"a"}, out["services"])
	assert.False(t, out.HasService(ReverseProxyService))

	_, err := SetVirtualHost(out, "a", "a.local")
	assert.Error(t, err)
}

func TestAddReverseProxyService_CreatesServicesMapping(t *testing.T) {
	doc := mustLoad(t, `version: "3"`)

	out := AddReverseProxyService(doc, DefaultProxy())

	assert.Equal(t, []string{}, ServiceNames(out))
	assert.True(t, out.HasService(ReverseProxyService))
	assert.Equal(t, "3", out["version"])
}

// --- SetVirtualHost / RemoveVirtualHost ---

func TestSetVirtualHost_SequenceForm(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    environment:
      - FOO=bar
`)

	out, err := SetVirtualHost(doc, "web", "a.local")
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"FOO=bar", "VIRTUAL_HOST=a.local"}, serviceField(t, out, "web", "environment"))
	assert.Equal(t, []interface{}{"FOO=bar"}, serviceField(t, doc, "web", "environment"))
}

func TestSetVirtualHost_ReplacesExistingEntry(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    environment:
      - VIRTUAL_HOST=old.local
      - FOO=bar
      - VIRTUAL_HOST=older.local
`)

	out, err := SetVirtualHost(doc, "web", "new.local")
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"FOO=bar", "VIRTUAL_HOST=new.local"}, serviceField(t, out, "web", "environment"))
}

func TestSetVirtualHost_MappingForm(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    environment:
      FOO: bar
      VIRTUAL_HOST: old.local
`)

	out, err := SetVirtualHost(doc, "web", "a.local")
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"FOO":          "bar",
		"VIRTUAL_HOST": "a.local",
	}, serviceField(t, out, "web", "environment"))
}

func TestSetVirtualHost_MissingEnvironment(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    image: nginx
`)

	out, err := SetVirtualHost(doc, "web", "a.local")
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"VIRTUAL_HOST=a.local"}, serviceField(t, out, "web", "environment"))
}

func TestSetVirtualHost_ServiceNotFound(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    image: nginx
`)

	_, err := SetVirtualHost(doc, "api", "a.local")
	require.Error(t, err)

	var notFound *ServiceNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "api", notFound.Service)
	assert.True(t, errors.Is(err, ErrServiceNotFound))
}

func TestSetVirtualHost_MalformedEnvironment(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    environment: "FOO=bar"
`)

	_, err := SetVirtualHost(doc, "web", "a.local")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedField))
	assert.Contains(t, err.Error(), "services.web.environment")
}

func TestRemoveVirtualHost_InverseOfSet(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "sequence",
			src: `
services:
  web:
    environment:
      - FOO=bar
`,
		},
		{
			name: "mapping",
			src: `
services:
  web:
    environment:
      FOO: bar
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustLoad(t, tt.src)

			secured, err := SetVirtualHost(doc, "web", "x.local")
			require.NoError(t, err)
			out, err := RemoveVirtualHost(secured)
			require.NoError(t, err)

			assert.Equal(t, doc, out)
			assert.Empty(t, VirtualHosts(out))
		})
	}
}

func TestRemoveVirtualHost_LeavesServicesWithoutEnvironment(t *testing.T) {
	doc := mustLoad(t, `
services:
  db:
    image: mysql
  web:
    environment:
      - VIRTUAL_HOST=a.local
`)

	out, err := RemoveVirtualHost(doc)
	require.NoError(t, err)

	assert.Nil(t, serviceField(t, out, "db", "environment"))
	assert.Equal(t, []interface{}{}, serviceField(t, out, "web", "environment"))
}

func TestRemoveVirtualHost_NoChangeReturnsInput(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    environment:
      - FOO=bar
`)

	out, err := RemoveVirtualHost(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

// --- QuarantinePorts / RestorePorts ---

func TestQuarantinePorts_AllPortsSequence(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    ports: ["80:80", "443:443"]
    labels: []
`)

	quarantined, err := QuarantinePorts(doc, "web", AllPorts())
	require.NoError(t, err)

	assert.Equal(t, []interface{}{}, serviceField(t, quarantined, "web", "ports"))
	assert.Equal(t, []interface{}{"io.ahoyworld.services.ports=80:80,443:443"}, serviceField(t, quarantined, "web", "labels"))

	restored, err := RestorePorts(quarantined)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"80:80", "443:443"}, serviceField(t, restored, "web", "ports"))
	assert.Equal(t, []interface{}{}, serviceField(t, restored, "web", "labels"))
}

func TestQuarantinePorts_ConflictingOnly(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    ports:
      - "8080:80"
      - "443:443"
      - "3000:3000"
      - "80:80"
`)

	out, err := QuarantinePorts(doc, "web", ConflictingWith(DefaultProxyPorts...))
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"8080:80", "3000:3000"}, serviceField(t, out, "web", "ports"))
	// A missing labels field is created in sequence form.
	assert.Equal(t, []interface{}{"io.ahoyworld.services.ports=443:443,80:80"}, serviceField(t, out, "web", "labels"))
}

func TestQuarantinePorts_MergesWithPriorBackup(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    ports: ["80:80", "443:443"]
    labels:
      - com.example=1
      - io.ahoyworld.services.ports=80:80,9000:9000
`)

	out, err := QuarantinePorts(doc, "web", AllPorts())
	require.NoError(t, err)

	assert.Equal(t, []interface{}{
		"com.example=1",
		"io.ahoyworld.services.ports=80:80,9000:9000,443:443",
	}, serviceField(t, out, "web", "labels"))
}

func TestQuarantinePorts_MappingLabels(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    ports: ["80:80"]
    labels:
      com.example: "1"
`)

	out, err := QuarantinePorts(doc, "web", AllPorts())
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"com.example":   "1",
		PortBackupLabel: "80:80",
	}, serviceField(t, out, "web", "labels"))
}

func TestQuarantinePorts_NothingSelectedIsNoop(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    ports: ["3000:3000"]
`)

	out, err := QuarantinePorts(doc, "web", ConflictingWith("80:80"))
	require.NoError(t, err)

	assert.Equal(t, doc, out)
	assert.Nil(t, serviceField(t, out, "web", "labels"))
}

func TestQuarantinePorts_ServiceNotFound(t *testing.T) {
	doc := mustLoad(t, `services: {}`)

	_, err := QuarantinePorts(doc, "web", AllPorts())
	assert.True(t, errors.Is(err, ErrServiceNotFound))
}

// TestQuarantineRestore_RoundTrip verifies that restoring puts back exactly
// the quarantined ports for both field representations.
func TestQuarantineRestore_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		selection PortSelection
	}{
		{
			name: "sequence ports, sequence labels",
			src: `
services:
  web:
    ports: ["80:80", "3000:3000", "443:443"]
    labels: ["a=b"]
`,
			selection: ConflictingWith("80:80", "443:443"),
		},
		{
			name: "sequence ports, mapping labels",
			src: `
services:
  web:
    ports: ["80:80", "443:443"]
    labels:
      a: b
`,
			selection: AllPorts(),
		},
		{
			name: "mapping ports, mapping labels",
			src: `
services:
  web:
    ports:
      80: 80
      8080: 8080
    labels:
      a: b
`,
			selection: ConflictingWith("80:80"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustLoad(t, tt.src)
			before := fieldStrings(t, doc, "web", fieldPorts, PortSeparator)
			labelsBefore := fieldStrings(t, doc, "web", fieldLabels, KeyValueSeparator)

			quarantined, err := QuarantinePorts(doc, "web", tt.selection)
			require.NoError(t, err)
			restored, err := RestorePorts(quarantined)
			require.NoError(t, err)

			assert.ElementsMatch(t, before, fieldStrings(t, restored, "web", fieldPorts, PortSeparator))
			assert.Equal(t, labelsBefore, fieldStrings(t, restored, "web", fieldLabels, KeyValueSeparator))
		})
	}
}

func TestRestorePorts_DoesNotDuplicate(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    ports: ["80:80"]
    labels: ["io.ahoyworld.services.ports=80:80,443:443"]
`)

	out, err := RestorePorts(doc)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"80:80", "443:443"}, serviceField(t, out, "web", "ports"))
}

func TestRestorePorts_SkipsServicesWithoutBackup(t *testing.T) {
	doc := mustLoad(t, `
services:
  db:
    image: mysql
  web:
    ports: ["3000:3000"]
    labels: ["a=b"]
`)

	out, err := RestorePorts(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

func TestRestorePorts_MalformedLabel(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "empty sequence value",
			src: `
services:
  web:
    labels: ["io.ahoyworld.services.ports="]
`,
		},
		{
			name: "non-string mapping value",
			src: `
services:
  web:
    labels:
      io.ahoyworld.services.ports: 80
`,
		},
		{
			name: "null mapping value",
			src: `
services:
  web:
    labels:
      io.ahoyworld.services.ports:
`,
		},
		{
			name: "trailing comma",
			src: `
services:
  web:
    ports: []
    labels:
      - io.ahoyworld.services.ports=80:80,
`,
		},
		{
			name: "empty middle entry",
			src: `
services:
  web:
    labels:
      io.ahoyworld.services.ports: "80:80,,443:443"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustLoad(t, tt.src)

			_, err := RestorePorts(doc)
			require.Error(t, err)

			var malformed *MalformedLabelError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, "web", malformed.Service)
			assert.True(t, errors.Is(err, ErrMalformedLabel))
		})
	}
}

// --- RemoveService ---

func TestRemoveService(t *testing.T) {
	doc := AddReverseProxyService(mustLoad(t, `
services:
  web:
    image: nginx
`), DefaultProxy())

	out := RemoveService(doc, ReverseProxyService)

	assert.False(t, out.HasService(ReverseProxyService))
	assert.True(t, out.HasService("web"))
	assert.True(t, doc.HasService(ReverseProxyService))
}

func TestRemoveService_AbsentIsNoop(t *testing.T) {
	doc := mustLoad(t, `
services:
  web:
    image: nginx
`)
	snapshot := doc.Clone()

	out := RemoveService(doc, "api")

	assert.Equal(t, snapshot, out)
}

// --- VirtualHosts ---

func TestVirtualHosts(t *testing.T) {
	doc := mustLoad(t, `
services:
  api:
    environment:
      VIRTUAL_HOST: api.local
  db:
    image: mysql
  web:
    environment:
      - FOO=bar
      - VIRTUAL_HOST=web.local
`)

	assert.Equal(t, []string{"api.local", "web.local"}, VirtualHosts(doc))
	assert.Equal(t, "web.local", ServiceVirtualHost(doc, "web"))
	assert.Equal(t, "", ServiceVirtualHost(doc, "db"))
	assert.Equal(t, "", ServiceVirtualHost(doc, "missing"))
}

// --- SelectServiceList ---

func TestSelectServiceList(t *testing.T) {
	tests := []struct {
		name        string
		defaultList interface{}
		explicit    string
		want        []string
	}{
		{name: "sequence default", defaultList: []interface{}{"a", "b"}, want: []string{"a", "b"}},
		{name: "explicit wins", defaultList: []interface{}{"a", "b"}, explicit: "c, d", want: []string{"c", "d"}},
		{name: "string default", defaultList: "nginx, php ,mysql", want: []string{"nginx", "php", "mysql"}},
		{name: "string slice default", defaultList: []string{"x"}, want: []string{"x"}},
		{name: "empty entries kept", defaultList: nil, explicit: "a,, ,b", want: []string{"a", "", "", "b"}},
		{name: "no default", defaultList: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectServiceList(tt.defaultList, tt.explicit))
		})
	}
}

// TestSecureUnsecure_RoundTrip runs the full sequence `secure` and
// `unsecure` apply and checks the document comes back unchanged.
func TestSecureUnsecure_RoundTrip(t *testing.T) {
	doc := mustLoad(t, `
version: "3"
x-shared: &shared
  restart: always
services:
  web:
    image: nginx
    ports: ["80:80", "8080:8080"]
    environment:
      - APP_ENV=local
    labels:
      - com.example=1
    healthcheck:
      test: ["CMD", "true"]
  db:
    image: mysql
`)
	proxy := DefaultProxy().WithCertificates("/data/ssl/a.local")

	secured := AddReverseProxyService(doc, proxy)
	secured, err := SetVirtualHost(secured, "web", "a.local")
	require.NoError(t, err)
	secured, err = QuarantinePorts(secured, "web", ConflictingWith(proxy.Ports()...))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.local"}, VirtualHosts(secured))
	assert.Equal(t, []interface{}{"8080:8080"}, serviceField(t, secured, "web", "ports"))

	restored, err := RestorePorts(secured)
	require.NoError(t, err)
	restored, err = RemoveVirtualHost(restored)
	require.NoError(t, err)
	restored = RemoveService(restored, ReverseProxyService)

	assert.ElementsMatch(t, []string{"80:80", "8080:8080"}, fieldStrings(t, restored, "web", fieldPorts, PortSeparator))
	assert.Equal(t, serviceField(t, doc, "web", "environment"), serviceField(t, restored, "web", "environment"))
	assert.Equal(t, serviceField(t, doc, "web", "labels"), serviceField(t, restored, "web", "labels"))
	assert.Equal(t, serviceField(t, doc, "web", "healthcheck"), serviceField(t, restored, "web", "healthcheck"))
	assert.Equal(t, doc["x-shared"], restored["x-shared"])
}
