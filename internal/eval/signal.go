package eval

import "fmt"

// Signal is the Go-level carrier for a raised exception: propagated as an error up through Eval until a
// core.Handle arm's pattern matches its Packet, or it escapes to the REPL
// as an uncaught exception.
type Signal struct {
	Packet *ConstructorValue
}

func (s *Signal) Error() string {
	return fmt.Sprintf("uncaught exception %s", Print(s.Packet))
}

func raise(name string, arg Value) error {
	return &Signal{Packet: &ConstructorValue{Name: name, Arg: arg}}
}

// asSignal reports whether err is a raised exception, for core.Handle to
// test its arms against.
func asSignal(err error) (*Signal, bool) {
	sig, ok := err.(*Signal)
	return sig, ok
}
