package adb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeRunner records invocations and replies from a canned script.
type fakeRunner struct {
	calls   [][]string
	replies []reply
}

type reply struct {
	out string
	err error
}

func (f *fakeRunner) run(ctx context.Context, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if len(f.replies) == 0 {
		return nil, nil
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return []byte(r.out), r.err
}

func TestInstalledExactMatch(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want bool
	}{
		{
			name: "exact package line",
			out:  "package:fi.sbweather.app\n",
			want: true,
		},
		{
			name: "substring match only",
			out:  "package:fi.sbweather.app.beta\n",
			want: false,
		},
		{
			name: "among several lines",
			out:  "package:com.other\npackage:fi.sbweather.app\n",
			want: true,
		},
		{
			name: "empty output",
			out:  "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{replies: []reply{{out: tt.out}}}
			b := New(WithRunner(f.run))

			got, err := b.Installed(context.Background(), "fi.sbweather.app")
			if err != nil {
				t.Fatalf("Installed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Installed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstalledCommandShape(t *testing.T) {
	f := &fakeRunner{replies: []reply{{out: ""}}}
	b := New(WithRunner(f.run), WithSerial("emulator-5554"))

	if _, err := b.Installed(context.Background(), "com.feelment"); err != nil {
		t.Fatalf("Installed: %v", err)
	}

	want := []string{"-s", "emulator-5554", "shell", "pm", "list", "packages", "com.feelment"}
	got := f.calls[0]
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestUninstall(t *testing.T) {
	t.Run("success marker", func(t *testing.T) {
		f := &fakeRunner{replies: []reply{{out: "Success\n"}}}
		b := New(WithRunner(f.run))
		if err := b.Uninstall(context.Background(), "com.feelment"); err != nil {
			t.Errorf("Uninstall: %v", err)
		}
	})

	t.Run("pm failure on stdout", func(t *testing.T) {
		f := &fakeRunner{replies: []reply{{out: "Failure [DELETE_FAILED_INTERNAL_ERROR]\n"}}}
		b := New(WithRunner(f.run))
		if err := b.Uninstall(context.Background(), "com.feelment"); err == nil {
			t.Error("expected error for Failure output")
		}
	})

	t.Run("exec error", func(t *testing.T) {
		f := &fakeRunner{replies: []reply{{err: errors.New("device offline")}}}
		b := New(WithRunner(f.run))
		if err := b.Uninstall(context.Background(), "com.feelment"); err == nil {
			t.Error("expected error when adb fails")
		}
	})
}

func TestVersionNeverErrors(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
		want string
	}{
		{
			name: "version present",
			out:  "    versionCode=42\n    versionName=2.1.3\n",
			want: "2.1.3",
		},
		{
			name: "first versionName wins",
			out:  "versionName=1.0.0\nversionName=0.9.0\n",
			want: "1.0.0",
		},
		{
			name: "no version line",
			out:  "Packages:\n  nothing here\n",
			want: "Unknown",
		},
		{
			name: "adb failure",
			err:  errors.New("no devices"),
			want: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{replies: []reply{{out: tt.out, err: tt.err}}}
			b := New(WithRunner(f.run))
			if got := b.Version(context.Background(), "com.coubonga.app"); got != tt.want {
				t.Errorf("Version = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWaitInstalledFindsPackage(t *testing.T) {
	f := &fakeRunner{replies: []reply{
		{out: ""},
		{out: ""},
		{out: "package:fi.reportronic.app\n"},
	}}
	b := New(WithRunner(f.run))

	ok := b.WaitInstalled(context.Background(), "fi.reportronic.app", 5, time.Millisecond)
	if !ok {
		t.Error("WaitInstalled should report true once the package appears")
	}
	if len(f.calls) != 3 {
		t.Errorf("expected 3 polls, got %d", len(f.calls))
	}
}

func TestWaitInstalledExhaustsBudget(t *testing.T) {
	f := &fakeRunner{replies: []reply{{out: ""}}}
	b := New(WithRunner(f.run))

	start := time.Now()
	ok := b.WaitInstalled(context.Background(), "com.absent", 3, time.Millisecond)
	if ok {
		t.Error("WaitInstalled should report false for an absent package")
	}
	if len(f.calls) != 3 {
		t.Errorf("expected exactly 3 polls, got %d", len(f.calls))
	}
	if time.Since(start) > time.Second {
		t.Error("WaitInstalled took far longer than its budget")
	}
}

func TestWaitInstalledHonorsContext(t *testing.T) {
	f := &fakeRunner{replies: []reply{{out: ""}}}
	b := New(WithRunner(f.run))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := b.WaitInstalled(ctx, "com.absent", 1000, time.Hour); ok {
		t.Error("WaitInstalled should report false on cancelled context")
	}
}

func TestLaunchAndIntentCommandShape(t *testing.T) {
	f := &fakeRunner{}
	b := New(WithRunner(f.run))
	ctx := context.Background()

	if err := b.LaunchApp(ctx, "com.iloq.smartlock.s50"); err != nil {
		t.Fatalf("LaunchApp: %v", err)
	}
	if err := b.OpenStorePage(ctx, "com.iloq.smartlock.s50"); err != nil {
		t.Fatalf("OpenStorePage: %v", err)
	}

	launch := strings.Join(f.calls[0], " ")
	if launch != "shell monkey -p com.iloq.smartlock.s50 -c android.intent.category.LAUNCHER 1" {
		t.Errorf("unexpected monkey command: %s", launch)
	}

	intent := strings.Join(f.calls[1], " ")
	if !strings.Contains(intent, "market://details?id=com.iloq.smartlock.s50") {
		t.Errorf("market intent missing details URI: %s", intent)
	}
	if !strings.Contains(intent, "android.intent.action.VIEW") {
		t.Errorf("market intent missing VIEW action: %s", intent)
	}
}

func TestParseDevices(t *testing.T) {
	out := "List of devices attached\nemulator-5554\tdevice\n0123456789ABCDEF\toffline\n\n"
	devices := parseDevices(out)

	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Serial != "emulator-5554" || devices[0].State != "device" {
		t.Errorf("device 0 = %+v", devices[0])
	}
	if devices[1].State != "offline" {
		t.Errorf("device 1 state = %q, want offline", devices[1].State)
	}
}

func TestParseVersionName(t *testing.T) {
	dump := "  Package [fi.sbweather.app] (1234abcd):\n    versionCode=7 minSdk=24\n    versionName=3.4.1\n"
	if got := parseVersionName(dump); got != "3.4.1" {
		t.Errorf("parseVersionName = %q, want 3.4.1", got)
	}
}
