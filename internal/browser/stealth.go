package browser

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// StealthScript hides the most common headless Chrome tells. It matches the
// Windows desktop fingerprint set by Options.
const StealthScript = `
(function() {
    'use strict';

    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
        configurable: true
    });
    delete Object.getPrototypeOf(navigator).webdriver;

    Object.defineProperty(navigator, 'platform', {
        get: () => 'Win32',
        configurable: true
    });

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['en-US', 'en']),
        configurable: true
    });

    // Headless Chrome reports no plugins.
    const names = ['PDF Viewer', 'Chrome PDF Viewer', 'Chromium PDF Viewer'];
    const plugins = Object.create(PluginArray.prototype);
    names.forEach((name, i) => {
        const p = Object.create(Plugin.prototype);
        Object.defineProperties(p, {
            name: { value: name, enumerable: true },
            filename: { value: 'internal-pdf-viewer', enumerable: true },
            description: { value: 'Portable Document Format', enumerable: true },
            length: { value: 1, enumerable: true }
        });
        plugins[i] = p;
        plugins[name] = p;
    });
    Object.defineProperty(plugins, 'length', { value: names.length });
    Object.defineProperty(plugins, 'item', { value: (i) => plugins[i] || null });
    Object.defineProperty(plugins, 'namedItem', { value: (n) => plugins[n] || null });
    Object.defineProperty(navigator, 'plugins', {
        get: () => plugins,
        configurable: true
    });

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', {
            value: {},
            writable: true,
            enumerable: true,
            configurable: false
        });
    }
    if (!window.chrome.runtime) {
        window.chrome.runtime = {
            get id() { return undefined; },
            connect: function() {},
            sendMessage: function() {}
        };
    }

    const originalQuery = Permissions.prototype.query;
    Permissions.prototype.query = function(parameters) {
        if (parameters && parameters.name === 'notifications') {
            return Promise.resolve({ state: Notification.permission });
        }
        return originalQuery.call(this, parameters);
    };

    const glHandler = {
        apply: function(target, ctx, args) {
            if (args[0] === 37445) return 'Google Inc. (Intel)';
            if (args[0] === 37446) return 'ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)';
            return Reflect.apply(target, ctx, args);
        }
    };
    for (const ctor of [window.WebGLRenderingContext, window.WebGL2RenderingContext]) {
        try {
            ctor.prototype.getParameter = new Proxy(ctor.prototype.getParameter, glHandler);
        } catch (e) {}
    }

    if (!navigator.hardwareConcurrency) {
        Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8, configurable: true });
    }
    if (!navigator.deviceMemory) {
        Object.defineProperty(navigator, 'deviceMemory', { get: () => 8, configurable: true });
    }
})();
`

// stealthFlags are the launch flags that go with StealthScript.
func stealthFlags() []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-default-apps", true),

		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("accept-lang", DefaultAcceptLanguage),
	}
}

// InjectStealthScript returns an action that installs StealthScript before
// any page script runs. Run it before navigating.
func InjectStealthScript() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(StealthScript).Do(ctx)
		return err
	})
}
