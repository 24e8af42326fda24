// deckrun executes one deck script in a restricted Lua runtime and exits.
// It is the child process the executor spawns: the script gets the base,
// package, table, string, math and io libraries and nothing else, and module
// resolution is pinned to the script's own directory.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: deckrun <script.lua>")
		os.Exit(2)
	}

	scriptPath, err := filepath.Abs(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "deckrun: %v\n", err)
		os.Exit(2)
	}

	if err := run(scriptPath); err != nil {
		fmt.Fprintf(os.Stderr, "deckrun: %v\n", err)
		os.Exit(1)
	}
}

func run(scriptPath string) error {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	defer L.Close()

	openRestrictedLibs(L, filepath.Dir(scriptPath))

	if err := L.DoFile(scriptPath); err != nil {
		return err
	}
	return nil
}

// openRestrictedLibs loads the libraries a deck script legitimately needs.
// os and debug stay closed; dynamic code loading is removed from base.
func openRestrictedLibs(L *lua.LState, scriptDir string) {
	lua.OpenPackage(L)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	lua.OpenIo(L)

	// No dynamic code loading.
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)

	// require() resolves modules only next to the script.
	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(filepath.Join(scriptDir, "?.lua")))
		L.SetField(pkg, "cpath", lua.LString(""))
	}
}
