package engine

import (
	"context"
	"reflect"
	"testing"
)

func TestJavaCommandArgs(t *testing.T) {
	j := NewJava("", []string{"-Xmx2G", "-XX:+UseG1GC"}, "cli.jar", "patches.rvp")

	cmd := j.command(context.Background(), "list-patches", "--with-packages", "patches.rvp")
	want := []string{"java", "-Xmx2G", "-XX:+UseG1GC", "-jar", "cli.jar", "list-patches", "--with-packages", "patches.rvp"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("args = %v, want %v", cmd.Args, want)
	}
}

func TestJavaCommandNoOpts(t *testing.T) {
	j := NewJava("/opt/jdk/bin/java", nil, "cli.jar", "patches.rvp")

	cmd := j.command(context.Background(), "patch", "-p", "patches.rvp", "in.apk")
	want := []string{"/opt/jdk/bin/java", "-jar", "cli.jar", "patch", "-p", "patches.rvp", "in.apk"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("args = %v, want %v", cmd.Args, want)
	}
}
