// Package gatekeeper implements a small gateway that completes the OAuth
// authorization code exchange on behalf of browser applications that cannot
// hold a client secret.
//
// A caller sends GET /authenticate/<client>/<code>. The gateway looks up the
// client, posts the code together with the client's secret to the provider's
// token endpoint and answers with one of:
//
//	404 {"error":"unknown_client"}        client is not registered
//	402 {"error":"bad_code"}              provider did not issue a token
//	402 {"error":"upstream_unreachable"}  provider could not be reached
//	200 {"token":"<access token>"}        redirect mode off
//	302 Location: <base>/<alias>/<code>   redirect mode on
//
// 402 is a compatibility contract meaning "start the flow again".
//
// Redirect mode is controlled per request by GATEKEEPER_AUTHENTICATE_REDIRECT
// and GATEKEEPER_CLIENT_RENAMES, see package runtimeconfig.
//
// # Usage
//
//	registry, err := clients.Load("config.yaml", nil)
//	if err != nil {
//		return err
//	}
//	exchanger := exchange.New(registry.Provider(), exchange.Config{Logger: logger})
//
//	server, err := gatekeeper.NewServer(registry, exchanger, runtimeconfig.NewSource(nil), &gatekeeper.Config{
//		Logger: logger,
//	})
//	if err != nil {
//		return err
//	}
//	defer server.Close()
//
//	http.ListenAndServe(":9999", gatekeeper.NewHandler(server, logger).Routes())
package gatekeeper
