package sim

// prelude is the minimal DOM every simulated page starts with. Host hooks
// are reached through the __host object installed before it runs.
const prelude = `(function (global) {
  function Element(tag) {
    this.tagName = String(tag).toUpperCase();
    this.id = '';
    this.textContent = '';
    this.attributes = {};
    this.children = [];
    this.parentNode = null;
  }
  Element.prototype.appendChild = function (child) {
    if (child.parentNode) { child.parentNode.removeChild(child); }
    child.parentNode = this;
    this.children.push(child);
    return child;
  };
  Element.prototype.removeChild = function (child) {
    var i = this.children.indexOf(child);
    if (i >= 0) {
      this.children.splice(i, 1);
      child.parentNode = null;
    }
    return child;
  };
  Element.prototype.setAttribute = function (name, value) {
    this.attributes[name] = String(value);
    if (name === 'id') { this.id = String(value); }
  };
  Element.prototype.getAttribute = function (name) {
    return Object.prototype.hasOwnProperty.call(this.attributes, name) ? this.attributes[name] : null;
  };

  function find(el, id) {
    if (el.id === id) { return el; }
    for (var i = 0; i < el.children.length; i++) {
      var hit = find(el.children[i], id);
      if (hit) { return hit; }
    }
    return null;
  }

  var html = new Element('html');
  var head = html.appendChild(new Element('head'));
  var body = html.appendChild(new Element('body'));

  var doc = {
    documentElement: html,
    head: head,
    body: body,
    readyState: 'loading',
    createElement: function (tag) { return new Element(tag); },
    getElementById: function (id) { return find(html, String(id)); }
  };
  Object.defineProperty(doc, 'cookie', {
    get: function () { return __host.cookies(); },
    set: function (v) { __host.setCookie(String(v)); }
  });

  global.window = global;
  global.self = global;
  global.document = doc;
  global.location = {
    href: __host.url,
    assign: function (u) { __host.navigate(String(u)); },
    replace: function (u) { __host.navigate(String(u)); }
  };
  global.open = function (u) {
    if (u) { __host.navigate(String(u)); }
    return null;
  };
  global.matchMedia = function (query) {
    query = String(query);
    var dark = __host.dark();
    return { media: query, matches: query.indexOf('dark') !== -1 ? dark : (query.indexOf('light') !== -1 ? !dark : false) };
  };
  global.localStorage = {
    getItem: function (k) { return __host.getItem(String(k)); },
    setItem: function (k, v) {
      if (!__host.setItem(String(k), String(v))) { throw new Error('QuotaExceededError'); }
    },
    removeItem: function (k) { __host.removeItem(String(k)); }
  };
})(this);`

// appGlobals stands in for the hosted application's bootstrapped state
const appGlobals = `window.TD = {
  ready: false,
  settings: {
    theme: null,
    setTheme: function (theme) { this.theme = theme; }
  }
};`
