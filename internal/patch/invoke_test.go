package patch

import (
	"reflect"
	"testing"
)

func selection(c Choice, bind func(*OptionValues)) Selection {
	sel := Selection{Choice: c, Options: NewOptionValues()}
	if bind != nil {
		bind(sel.Options)
	}
	return sel
}

func TestBuildArgsLiteralScenario(t *testing.T) {
	sels := []Selection{
		selection(IndexChoice(3), func(v *OptionValues) { v.Set("format", "png") }),
	}

	got := BuildArgs(true, sels, nil, nil, "out.apk", "in.apk")
	want := []string{"--exclusive", "--ei", "3", "-Oformat=png", "-o", "out.apk", "in.apk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildArgsNullOption(t *testing.T) {
	sels := []Selection{
		selection(IndexChoice(1), func(v *OptionValues) { v.SetNull("strip") }),
	}

	got := BuildArgs(false, sels, nil, nil, "out.apk", "in.apk")
	want := []string{"--ei", "1", "-Ostrip", "-o", "out.apk", "in.apk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildArgsEmptyValueIsFlagOnly(t *testing.T) {
	sels := []Selection{
		selection(NameChoice("Remove ads"), func(v *OptionValues) { v.Set("icon", "") }),
	}

	got := BuildArgs(false, sels, nil, nil, "out.apk", "in.apk")
	want := []string{"-e", "Remove ads", "-Oicon", "-o", "out.apk", "in.apk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildArgsSigningOrder(t *testing.T) {
	signing := &Signing{
		Keystore:         "ks.keystore",
		KeystorePassword: "secret",
		KeyAlias:         "release",
		KeyPassword:      "keypw",
	}

	got := BuildArgs(false, nil, signing, nil, "out.apk", "in.apk")
	want := []string{
		"--keystore", "ks.keystore",
		"--keystore-password", "secret",
		"--keystore-entry-alias", "release",
		"--keystore-entry-password", "keypw",
		"-o", "out.apk", "in.apk",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildArgsPartialSigning(t *testing.T) {
	signing := &Signing{Keystore: "ks.keystore"}

	got := BuildArgs(false, nil, signing, nil, "out.apk", "in.apk")
	want := []string{"--keystore", "ks.keystore", "-o", "out.apk", "in.apk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildArgsExtraPassThrough(t *testing.T) {
	got := BuildArgs(false, nil, nil, []string{"--purge", "--rip-lib", "x86"}, "out.apk", "in.apk")
	want := []string{"--purge", "--rip-lib", "x86", "-o", "out.apk", "in.apk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildArgsUnresolvedSelectionPassesRawKey(t *testing.T) {
	// An unresolved selection carries no record but its raw key is still
	// forwarded; the engine is the validation authority.
	sels := []Selection{selection(IndexChoice(42), nil)}

	got := BuildArgs(false, sels, nil, nil, "out.apk", "in.apk")
	want := []string{"--ei", "42", "-o", "out.apk", "in.apk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildArgsInvalidKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on selection with invalid choice kind")
		}
	}()
	sels := []Selection{{Choice: Choice{Kind: ChoiceKind(99)}, Options: NewOptionValues()}}
	BuildArgs(false, sels, nil, nil, "out.apk", "in.apk")
}
