package form

import (
	"fmt"
	"io"
	"sync"
)

// TerminalView writes responses to out and status lines to status.
type TerminalView struct {
	mu       sync.Mutex
	out      io.Writer
	status   io.Writer
	disabled bool
	token    TokenVisibility
	last     Status
}

func NewTerminalView(out, status io.Writer) *TerminalView {
	return &TerminalView{out: out, status: status}
}

func (v *TerminalView) SetButtonsDisabled(disabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disabled = disabled
}

func (v *TerminalView) SetStatus(status Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = status
	if status.State == StateIdle || v.status == nil {
		return
	}
	fmt.Fprintf(v.status, "[%s]\n", status.Text)
}

func (v *TerminalView) SetResponse(body string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, body)
}

func (v *TerminalView) SetTokenVisibility(visibility TokenVisibility) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.token = visibility
}

// Credentials prints the instance id and the token as currently masked.
func (v *TerminalView) Credentials(idInstance, token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status == nil {
		return
	}
	fmt.Fprintf(v.status, "idInstance: %s\napiTokenInstance: %s\n", idInstance, v.token.Mask(token))
}

func (v *TerminalView) Disabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disabled
}

func (v *TerminalView) LastStatus() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}
