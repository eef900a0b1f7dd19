package catalog

import "os"

type timeouter interface {
	Timeout() bool
}

func isNotExist(err error) bool  { return os.IsNotExist(err) }
func isPermission(err error) bool { return os.IsPermission(err) }
func isExist(err error) bool     { return os.IsExist(err) }

func isTimeout(err error) bool {
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
