// register.go wires the proxy constructors into the nas package's registration
// variable (NewEvaluatorFunc). This init() runs when any package imports
// nas/proxy, breaking the import cycle between nas/ (interface owner) and
// nas/proxy/ (implementations). Production code imports nas/proxy directly;
// test code in package nas uses proxy_import_test.go for the blank import.
package proxy

import "github.com/proxynas/proxynas/nas"

func init() {
	nas.NewEvaluatorFunc = New
}
