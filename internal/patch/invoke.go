package patch

import "strconv"

// Engine flag vocabulary. These must match the external patch engine
// bit for bit.
const (
	flagExclusive        = "--exclusive"
	flagEnableIndex      = "--ei"
	flagEnableName       = "-e"
	flagOptionPrefix     = "-O"
	flagKeystore         = "--keystore"
	flagKeystorePassword = "--keystore-password"
	flagKeyAlias         = "--keystore-entry-alias"
	flagKeyPassword      = "--keystore-entry-password"
	flagOutput           = "-o"
)

// Signing holds the jar-signing parameters for the patch command. Empty
// fields are simply not emitted.
type Signing struct {
	Keystore         string
	KeystorePassword string
	KeyAlias         string
	KeyPassword      string
}

// BuildArgs serializes a patch invocation into the engine's ordered
// argument list: exclusivity flag, then one selector per selection with
// its option flags immediately after, then signing flags, extra
// pass-through arguments, and finally the output flag pair and the input
// path. Nothing is quoted or escaped here; rendering for display is the
// caller's concern.
func BuildArgs(exclusive bool, selections []Selection, signing *Signing, extra []string, output, input string) []string {
	var args []string

	if exclusive {
		args = append(args, flagExclusive)
	}

	for _, sel := range selections {
		switch sel.Choice.Kind {
		case ByIndex:
			args = append(args, flagEnableIndex, strconv.Itoa(sel.Choice.Index))
		case ByName:
			args = append(args, flagEnableName, sel.Choice.Name)
		default:
			panic("patch: selection with invalid choice kind")
		}
		for _, ov := range sel.Options.Entries() {
			if ov.Null || ov.Value == "" {
				args = append(args, flagOptionPrefix+ov.Key)
			} else {
				args = append(args, flagOptionPrefix+ov.Key+"="+ov.Value)
			}
		}
	}

	if signing != nil {
		if signing.Keystore != "" {
			args = append(args, flagKeystore, signing.Keystore)
		}
		if signing.KeystorePassword != "" {
			args = append(args, flagKeystorePassword, signing.KeystorePassword)
		}
		if signing.KeyAlias != "" {
			args = append(args, flagKeyAlias, signing.KeyAlias)
		}
		if signing.KeyPassword != "" {
			args = append(args, flagKeyPassword, signing.KeyPassword)
		}
	}

	args = append(args, extra...)
	args = append(args, flagOutput, output, input)
	return args
}
