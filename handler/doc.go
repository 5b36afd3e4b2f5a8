// Package handler turns typed request handlers into http.HandlerFunc values.
//
// A HandlerFunc receives a Context and a bound request value and returns a
// Response. Responses know how to render themselves for both classic page
// loads and Datastar (SSE) requests, so the same handler serves a full page
// on navigation and a targeted DOM patch on an in-page action.
//
//	h := handler.Wrap(func(ctx handler.Context, req loginForm) handler.Response {
//		if err := svc.SignIn(ctx, req.Email, req.Password); err != nil {
//			return handler.Templ(views.LoginForm(req.Email, err.Error()))
//		}
//		return handler.Redirect("/dashboard")
//	}, handler.WithBinders[handler.Context, loginForm](binder.Form()))
package handler
