package nas_test

// Blank import triggers nas/proxy's init(), which registers NewEvaluatorFunc.
// This allows package nas's internal test files to run searches over the
// standard proxies without directly importing nas/proxy (which would create
// an import cycle).
import _ "github.com/proxynas/proxynas/nas/proxy"
