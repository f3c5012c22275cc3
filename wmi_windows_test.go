//go:build windows
// +build windows

package wmi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Win32_OperatingSystem struct {
	Caption        string
	Version        string
	LastBootUpTime time.Time
}

func TestQuery(t *testing.T) {
	var dst []Win32_OperatingSystem
	require.NoError(t, Query(CreateQuery(&dst, ""), &dst))
	require.Len(t, dst, 1)
	assert.NotEmpty(t, dst[0].Caption)
	assert.False(t, dst[0].LastBootUpTime.IsZero())
}

func TestQueryInvalidDst(t *testing.T) {
	var notASlice int
	assert.Equal(t, ErrInvalidEntityType, Query("SELECT * FROM Win32_OperatingSystem", &notASlice))
	assert.Equal(t, ErrInvalidEntityType, Query("SELECT * FROM Win32_OperatingSystem", nil))
}

func TestConnectionQuery(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	var dst []Win32_Process
	require.NoError(t, conn.Query("SELECT Name, ProcessId FROM Win32_Process WHERE ProcessId = 4", &dst))
	require.Len(t, dst, 1)
	assert.Equal(t, "System", dst[0].Name)
}

func TestConnectionRawQuery(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	rows, err := conn.RawQuery("SELECT Caption, CurrentTimeZone, Primary FROM Win32_OperatingSystem")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	caption, ok := rows[0]["Caption"].Str()
	require.True(t, ok)
	assert.NotEmpty(t, caption)

	// CurrentTimeZone is CIM_SINT16 and must come back signed and narrow.
	assert.Equal(t, KindI2, rows[0]["CurrentTimeZone"].Kind())
	assert.Equal(t, KindBool, rows[0]["Primary"].Kind())
}

func TestConnectionQueryClosed(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	var dst []Win32_OperatingSystem
	assert.Equal(t, ErrConnectionClosed, conn.Query("SELECT * FROM Win32_OperatingSystem", &dst))
	require.NoError(t, conn.Close(), "closing twice is a no-op")
}

func TestConnectionGet(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	var os Win32_OperatingSystem
	require.NoError(t, conn.Get("Win32_OperatingSystem=@", &os))
	assert.NotEmpty(t, os.Version)

	obj, err := conn.GetObject("Win32_OperatingSystem=@")
	require.NoError(t, err)
	defer obj.Release()

	class, err := obj.Class()
	require.NoError(t, err)
	assert.Equal(t, "Win32_OperatingSystem", class)
}

func TestQueryAsync(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := conn.QueryAsync(ctx, "SELECT Name, ProcessId FROM Win32_Process")
	require.NoError(t, err)

	var got int
	for row := range rows {
		require.NoError(t, row.Err)
		_, ok := row.Values["Name"]
		assert.True(t, ok)
		got++
	}
	assert.NotZero(t, got, "at least our own process should be running")
}

func TestQueryAsyncCancel(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	rows, err := conn.QueryAsync(ctx, "SELECT * FROM Win32_Process")
	require.NoError(t, err)
	cancel()

	// The channel must close without delivering a context error row.
	for row := range rows {
		require.NoError(t, row.Err)
	}
}

func TestInvalidQueryError(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	_, err = conn.RawQuery("SELECT * FROM")
	require.Error(t, err)

	// The raw WBEM code must survive into the returned error.
	var hres *HResultError
	require.True(t, errors.As(err, &hres), "expected an HResultError, got %T", err)
	assert.Equal(t, uint32(WbemErrInvalidQuery), hres.HResult)
}

func TestGetMissingObject(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	var dst Win32_Process
	err = conn.Get(`Win32_Process.Handle="4294967295"`, &dst)
	assert.Equal(t, ErrResultEmpty, err)

	_, err = conn.GetObject(`Win32_Process.Handle="4294967295"`)
	assert.Equal(t, ErrResultEmpty, err)
}

func TestConnectServerArgsDefaultNamespace(t *testing.T) {
	// Local connections keep the machine default.
	assert.Equal(t, "", ConnectServerArgs{}.callArgs()[1])

	// Remote ones get the conventional namespace pinned.
	assert.Equal(t, `ROOT\CIMV2`,
		ConnectServerArgs{Server: "remotebox"}.callArgs()[1])
	assert.Equal(t, `root\wmi`,
		ConnectServerArgs{Server: "remotebox", Namespace: `root\wmi`}.callArgs()[1])
}

func TestExecMethod(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	// GetOwner on the System process fails with a non-zero ReturnValue but
	// exercises the full in/out parameter plumbing.
	out, err := conn.ExecMethod("Win32_Process.Handle=\"4\"", "GetOwner", nil)
	require.NoError(t, err)
	ret, ok := out["ReturnValue"]
	require.True(t, ok)
	assert.Equal(t, KindUI4, ret.Kind())
}

const hkeyLocalMachine = uint32(0x80000002)

func TestExecMethodWithParams(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{Namespace: `root\default`})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	// A registry read through StdRegProv passes three in-parameters and
	// returns one out-parameter besides ReturnValue.
	out, err := conn.ExecMethod("StdRegProv", "GetStringValue", map[string]interface{}{
		"hDefKey":     hkeyLocalMachine,
		"sSubKeyName": `SOFTWARE\Microsoft\Windows NT\CurrentVersion`,
		"sValueName":  "ProductName",
	})
	require.NoError(t, err)

	ret, ok := out["ReturnValue"].Uint()
	require.True(t, ok)
	require.Zero(t, ret, "registry read failed with win32 error %d", ret)

	value, ok := out["sValue"].Str()
	require.True(t, ok)
	assert.Contains(t, value, "Windows")
}

func TestExecClassMethod(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{Namespace: `root\default`})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	in := struct {
		DefKey     uint32 `wmi:"hDefKey"`
		SubKeyName string `wmi:"sSubKeyName"`
		ValueName  string `wmi:"sValueName"`
	}{hkeyLocalMachine, `SOFTWARE\Microsoft\Windows NT\CurrentVersion`, "ProductName"}

	var result struct {
		ReturnValue uint32
		Value       string `wmi:"sValue"`
	}
	require.NoError(t, conn.ExecClassMethod("StdRegProv", "GetStringValue", &in, &result))
	assert.Zero(t, result.ReturnValue)
	assert.NotEmpty(t, result.Value)
}

func TestNotificationQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("event queries poll for seconds")
	}

	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := conn.NotificationQuery(ctx, "__InstanceModificationEvent",
		map[string]FilterValue{"TargetInstance": FilterIsA("Win32_LocalTime")},
		time.Second)
	require.NoError(t, err)

	for event := range events {
		require.NoError(t, event.Err)
		target, ok := event.Values["TargetInstance"]
		require.True(t, ok)
		assert.Equal(t, KindObject, target.Kind())
		cancel() // One event is enough.
	}
}

func TestNotificationQueryInvalid(t *testing.T) {
	conn, err := ConnectSWbemServices(ConnectServerArgs{})
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	// A non-event class must fail the call itself, not the channel.
	_, err = conn.ExecNotificationQuery(context.Background(),
		"SELECT * FROM Win32_Process")
	require.Error(t, err)
}
