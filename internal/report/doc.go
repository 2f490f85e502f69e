// Package report renders solve results as text, JSON or Markdown.
//
// Every writer honours the state's view mode through model.Display: the
// none view shows a placeholder, hint shows the hint, steps adds the steps
// and full adds the answer. Error hints are shown in every view.
package report
