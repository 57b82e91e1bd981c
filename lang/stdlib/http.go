package stdlib

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chenlang/chenlang/lang/machine"
)

// installHTTP builds the `http` module: `request(method, url, body?)`
// suspends the calling fiber exactly like timer.sleep, handing the
// net/http.Client.Do call to a background goroutine and re-enqueueing the
// fiber with the response once it completes (SPEC_FULL.md §4.7).
func installHTTP(vm *machine.VM, timeout time.Duration) *machine.Object {
	client := &http.Client{Timeout: timeout}
	mod := machine.NewObject()
	_ = mod.Set("request", native("http.request", func(vm *machine.VM, args []machine.Value) (machine.Value, error) {
		if len(args) < 2 {
			return nil, argErr("http.request", 2, len(args))
		}
		method, err := argString("http.request", args, 0)
		if err != nil {
			return nil, err
		}
		url, err := argString("http.request", args, 1)
		if err != nil {
			return nil, err
		}
		var body string
		if len(args) > 2 {
			body, err = argString("http.request", args, 2)
			if err != nil {
				return nil, err
			}
		}

		f := vm.Current()
		vm.AddPending(1)
		go func() {
			var result machine.Value
			req, reqErr := http.NewRequest(strings.ToUpper(method), url, strings.NewReader(body))
			if reqErr == nil {
				var resp *http.Response
				resp, reqErr = client.Do(req)
				if reqErr == nil {
					defer resp.Body.Close()
					data, readErr := io.ReadAll(resp.Body)
					if readErr == nil {
						obj := machine.NewObject()
						_ = obj.Set("status", machine.Int(resp.StatusCode))
						_ = obj.Set("body", machine.Str(string(data)))
						result = obj
					} else {
						reqErr = readErr
					}
				}
			}
			if reqErr != nil {
				errObj := machine.NewObject()
				_ = errObj.Set("status", machine.Int(0))
				_ = errObj.Set("body", machine.Str(fmt.Sprintf("http.request: %s", reqErr)))
				result = errObj
			}
			vm.AddPending(-1)
			vm.EnqueueReady(f, result)
		}()
		return vm.Suspend(machine.Null)
	}))
	return mod
}
