package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two consecutive guards returning the same value can be merged.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// Wrapping with %v loses the error chain for errors.Is/As callers.
	m.Match(`fmt.Errorf($fmt, $*_, $err)`).
		Where(m["fmt"].Text.Matches(`".*%v"`) && m["err"].Type.Is(`error`)).
		Report(`use %w instead of %v when wrapping an error so callers can unwrap it`)

	m.Match(`time.Now().Sub($x)`).
		Report(`use time.Since instead of time.Now().Sub`).
		Suggest(`time.Since($x)`)
}
