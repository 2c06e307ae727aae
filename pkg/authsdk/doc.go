/*
Package authsdk is a small client for the Tollgate token endpoints and the
shared OAuth 2.0 wire types used by both the server and its callers.

	c := authsdk.NewClient("https://auth.example.com", "acme", "billing-api", secret)

	tok, err := c.ClientCredentials(ctx, "invoices:read")
	if err != nil {
		var oe *authsdk.OAuth2Error
		if errors.As(err, &oe) && oe.Code == authsdk.ErrorCodeInvalidScope {
			// ...
		}
	}

	info, err := c.Introspect(ctx, tok.AccessToken)

Every endpoint lives under a tenant prefix, so one Client is bound to one
tenant.
*/
package authsdk
