package providers

import (
	"github.com/smallbiznis/innkeeper/internal/providers/pdf"
	"go.uber.org/fx"
)

// Module collects the document renderers contributed to the invoice composer.
var Module = fx.Module("document.providers", pdf.Module)
