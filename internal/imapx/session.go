package imapx

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/smsvault/smsvault/internal/config"
	"go.uber.org/zap"
)

// Session is the slice of the IMAP client the store uses.
type Session interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Create(name string) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Append(mbox string, flags []string, date time.Time, msg imap.Literal) error
	Logout() error
}

// TokenProvider supplies an OAuth access token for login.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Connect dials the server and authenticates. Authentication failures come
// back as *AuthError.
func Connect(ctx context.Context, server config.Server, auth config.Auth, tokens TokenProvider, logger *zap.Logger) (Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := server.Addr()
	logger.Debug("connecting", zap.String("addr", addr), zap.Bool("tls", server.TLS))

	var c *client.Client
	var err error
	if server.TLS {
		c, err = client.DialTLS(addr, &tls.Config{
			ServerName:         server.Host,
			InsecureSkipVerify: server.InsecureSkipVerify,
		})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if err := login(ctx, c, server, auth, tokens); err != nil {
		_ = c.Logout()
		return nil, err
	}
	logger.Debug("authenticated", zap.String("user", auth.Username), zap.String("method", auth.Method))
	return c, nil
}

func login(ctx context.Context, c *client.Client, server config.Server, auth config.Auth, tokens TokenProvider) error {
	switch auth.Method {
	case "oauth2":
		if tokens == nil {
			return &AuthError{Message: "oauth2 configured without a token source"}
		}
		token, err := tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("obtain access token: %w", err)
		}
		sc := sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: auth.Username,
			Token:    token,
			Host:     server.Host,
			Port:     server.Port,
		})
		if err := c.Authenticate(sc); err != nil {
			return asAuthError(err)
		}
	default:
		if err := c.Login(auth.Username, auth.Password); err != nil {
			return asAuthError(err)
		}
	}
	return nil
}
