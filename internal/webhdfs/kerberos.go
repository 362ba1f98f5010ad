package webhdfs

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

// KerberosUser is the --hdfsUser value that selects Kerberos authentication.
const KerberosUser = "KERBEROS"

// KerberosConfig locates the credentials for SPNEGO.
type KerberosConfig struct {
	Krb5Conf string // path to krb5.conf
	CCache   string // credential cache; "" uses DefaultCCache
	SPN      string // service principal; "" derives HTTP/<host>
}

// DefaultCCache returns the credential cache path from $KRB5CCNAME (with
// any "FILE:" prefix removed) or /tmp/krb5cc_<uid>.
func DefaultCCache() string {
	if v := os.Getenv("KRB5CCNAME"); v != "" {
		return strings.TrimPrefix(v, "FILE:")
	}

	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// NewKerberosDoer builds a SPNEGO-authenticating Doer from an existing
// ticket cache (kinit must have been run).
func NewKerberosDoer(kc KerberosConfig, httpClient *http.Client) (Doer, error) {
	cfg, err := config.Load(kc.Krb5Conf)
	if err != nil {
		return nil, fmt.Errorf("webhdfs: loading kerberos config %s: %w", kc.Krb5Conf, err)
	}

	ccachePath := kc.CCache
	if ccachePath == "" {
		ccachePath = DefaultCCache()
	}

	ccache, err := credentials.LoadCCache(ccachePath)
	if err != nil {
		return nil, fmt.Errorf("webhdfs: loading credential cache %s: %w", ccachePath, err)
	}

	cl, err := client.NewFromCCache(ccache, cfg, client.DisablePAFXFAST(true))
	if err != nil {
		return nil, fmt.Errorf("webhdfs: creating kerberos client: %w", err)
	}

	return spnego.NewClient(cl, httpClient, kc.SPN), nil
}
