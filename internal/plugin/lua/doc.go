// Package lua lets Lua scripts observe and trigger string event sources.
//
// A Script exposes a global events table:
//
//	local id = events.on(function(msg)
//	    if msg == "burn finished" then
//	        events.emit("Verification complete")
//	    end
//	end)
//	events.off(id)
//
// Each events.on registration is tied to the script's lifecycle owner, so
// closing the script, or destroying its parent owner, removes every
// observer it added. The Lua runtime is gopher-lua with only the base,
// table, string and math libraries; print goes to the script logger.
//
//	script := lua.NewScript("notify", requests.ReadOnly(), dialogs,
//	    lua.WithParent(appOwner),
//	    lua.WithScriptLogger(logger),
//	)
//	defer script.Close()
//
//	if err := script.RunFile("notify.lua"); err != nil {
//	    return err
//	}
package lua
